package evalui

var indexHTML = []byte(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Agent Game Inspector</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; background: #181a22; color: #e8eaf2; }
  h1 { font-size: 1.3rem; }
  #layout { display: flex; gap: 2rem; align-items: flex-start; }
  #games { min-width: 22rem; border-collapse: collapse; }
  #games td, #games th { padding: .3rem .6rem; border-bottom: 1px solid #333; cursor: pointer; }
  #games tr:hover { background: #232636; }
  #board img { image-rendering: pixelated; border-radius: 6px; }
  #controls button { margin-right: .5rem; }
  .win { color: #7fd67f; } .loss { color: #e07a7a; } .draw { color: #c9c95e; }
</style>
</head>
<body>
<h1>Agent Game Inspector</h1>
<div id="layout">
  <div>
    <table id="games">
      <thead><tr><th>Game</th><th>Opponent</th><th>Color</th><th>Result</th><th>Moves</th><th>ACPL</th></tr></thead>
      <tbody></tbody>
    </table>
  </div>
  <div id="board" hidden>
    <img id="boardimg" alt="board">
    <div id="controls">
      <button id="prev">&laquo; prev</button>
      <span id="ply">0</span>
      <button id="next">next &raquo;</button>
    </div>
  </div>
</div>
<script>
let current = null, ply = 0, maxPly = 0;

async function loadGames() {
  const res = await fetch('/api/games');
  const games = await res.json();
  const tbody = document.querySelector('#games tbody');
  tbody.innerHTML = '';
  for (const g of games) {
    const tr = document.createElement('tr');
    tr.innerHTML = '<td>' + g.game_id.slice(0, 8) + '</td><td>' + g.opponent +
      '</td><td>' + g.player_color + '</td><td class="' + g.result + '">' + g.result +
      '</td><td>' + g.moves_played + '</td><td>' + g.player_acpl.toFixed(1) + '</td>';
    tr.onclick = () => openGame(g.game_id);
    tbody.appendChild(tr);
  }
}

async function openGame(id) {
  const res = await fetch('/api/games/' + id);
  const detail = await res.json();
  current = id;
  ply = detail.move_history ? detail.move_history.length : 0;
  maxPly = ply;
  document.getElementById('board').hidden = false;
  showPly();
}

function showPly() {
  document.getElementById('ply').textContent = ply + ' / ' + maxPly;
  document.getElementById('boardimg').src = '/api/games/' + current + '/board/' + ply;
}

document.getElementById('prev').onclick = () => { if (current && ply > 0) { ply--; showPly(); } };
document.getElementById('next').onclick = () => { if (current && ply < maxPly) { ply++; showPly(); } };

loadGames();
</script>
</body>
</html>
`)
