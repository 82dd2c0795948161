package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
)

// MateScore is the centipawn value a forced mate collapses to when a score
// is compared numerically. Any finite evaluation stays strictly inside
// (-MateScore, MateScore), so mate-for > finite > mate-against holds.
const MateScore = 10000

// Score is a single engine evaluation from White's perspective: either a
// centipawn value or a forced mate with a signed distance in plies.
type Score struct {
	CP     int
	Mate   bool
	MateIn int
}

// Centipawns returns the score on a single numeric axis, collapsing mates
// to ±MateScore.
func (s Score) Centipawns() int {
	if s.Mate {
		if s.MateIn >= 0 {
			return MateScore
		}
		return -MateScore
	}
	return s.CP
}

func (s Score) String() string {
	if s.Mate {
		return fmt.Sprintf("mate %+d", s.MateIn)
	}
	return fmt.Sprintf("cp %+d", s.CP)
}

type Options struct {
	Threads    int
	SkillLevel int
	HashMB     int
	Elo        int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

// Candidate is one ranked engine line: the first move of the principal
// variation with its evaluation.
type Candidate struct {
	Move      string
	Score     Score
	Principal []string
}

// Session owns one engine child process speaking the UCI text protocol.
// A session serves one request at a time; Close is safe to call more than
// once and always reaps the process.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu     sync.Mutex
	search sync.Mutex

	closeOnce sync.Once
	closeErr  error
	closedMu  sync.Mutex
	closed    bool
	readStale bool
}

func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
	}

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Evaluate scores a position at the given depth. The result is from White's
// perspective regardless of the side to move.
func (s *Session) Evaluate(ctx context.Context, fen string, depth int) (Score, error) {
	if depth <= 0 {
		return Score{}, fmt.Errorf("evaluate depth must be > 0: %d", depth)
	}
	resp, err := s.runSearch(ctx, fen, 1, Limits{Depth: depth})
	if err != nil {
		return Score{}, err
	}
	if len(resp.Candidates) == 0 {
		return Score{}, fmt.Errorf("engine returned no evaluation")
	}
	return resp.Candidates[0].Score, nil
}

// Rank returns the engine's top-n moves for the position, best first. The
// result may be shorter than n when the position has fewer lines.
func (s *Session) Rank(ctx context.Context, fen string, n, depth int) ([]Candidate, error) {
	if n <= 0 {
		return nil, fmt.Errorf("rank size must be > 0: %d", n)
	}
	if depth <= 0 {
		return nil, fmt.Errorf("rank depth must be > 0: %d", depth)
	}
	resp, err := s.runSearch(ctx, fen, n, Limits{Depth: depth})
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("engine returned no candidates")
	}
	if len(resp.Candidates) > n {
		resp.Candidates = resp.Candidates[:n]
	}
	return resp.Candidates, nil
}

// BestMove runs a time-bounded search and returns only the engine's chosen
// move. Used for the fast proposer-miss fallback.
func (s *Session) BestMove(ctx context.Context, fen string, moveTime time.Duration) (string, error) {
	ms := int(moveTime.Milliseconds())
	if ms <= 0 {
		ms = 100
	}
	resp, err := s.runSearch(ctx, fen, 1, Limits{MoveTimeMillis: ms})
	if err != nil {
		return "", err
	}
	if resp.BestMove == "" {
		return "", fmt.Errorf("engine returned no bestmove")
	}
	return resp.BestMove, nil
}

// Available reports whether the session can still serve requests. A session
// whose reader timed out mid-line is permanently unavailable: the parked
// goroutine still owns the pipe, so any further read would desync the
// protocol.
func (s *Session) Available() bool {
	s.closedMu.Lock()
	defer s.closedMu.Unlock()
	return !s.closed && !s.readStale && s.cmd != nil && s.cmd.Process != nil
}

type searchResponse struct {
	Candidates []Candidate
	BestMove   string
}

func (s *Session) runSearch(ctx context.Context, fen string, multiPV int, limits Limits) (searchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	if !s.Available() {
		return searchResponse{}, fmt.Errorf("engine session closed")
	}

	if err := s.send(fmt.Sprintf("setoption name MultiPV value %d\n", multiPV)); err != nil {
		return searchResponse{}, fmt.Errorf("set multipv: %w", err)
	}
	if err := s.send(buildPositionCommand(fen)); err != nil {
		return searchResponse{}, fmt.Errorf("send position: %w", err)
	}

	goTokens, err := buildGoTokens(limits)
	if err != nil {
		return searchResponse{}, err
	}
	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return searchResponse{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(limits))
	defer cancel()

	candidates := make(map[int]Candidate)
	var best string

	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			return searchResponse{}, fmt.Errorf("read line (go=%s): %w", goCmd, err)
		}
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if mv, cand, ok := parseInfo(line); ok {
				candidates[mv] = cand
			}
		case strings.HasPrefix(line, "bestmove"):
			parts := strings.Fields(line)
			if len(parts) >= 2 {
				best = parts[1]
			}
			return searchResponse{Candidates: collapseCandidates(candidates), BestMove: best}, nil
		}
	}
}

func buildPositionCommand(fen string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(fen)
	}
	sb.WriteString("\n")
	return sb.String()
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB < 0 {
		return fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}
	if opt.Elo < 0 {
		return fmt.Errorf("elo must be >= 0: %d", opt.Elo)
	}
	return nil
}

func buildGoTokens(l Limits) ([]string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if l.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(l.NodeCap))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return args, nil
}

func computeSearchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		ms := l.MoveTimeMillis + 2000
		return time.Duration(ms) * time.Millisecond * 3
	}
	if l.Depth > 0 {
		base := time.Duration(l.Depth) * 300 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		if base > 20*time.Second {
			base = 20 * time.Second
		}
		return base
	}
	return 6 * time.Second
}

func parseInfo(line string) (int, Candidate, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return 0, Candidate{}, false
	}
	var (
		multipv = 1
		score   Score
		pvIdx   = -1
	)

	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				kind := parts[i+1]
				val := parts[i+2]
				switch kind {
				case "cp":
					if v, err := strconv.Atoi(val); err == nil {
						score = Score{CP: v}
					}
				case "mate":
					if v, err := strconv.Atoi(val); err == nil {
						score = Score{Mate: true, MateIn: v}
					}
				}
				i += 2
			}
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}

	if pvIdx == -1 || pvIdx >= len(parts) {
		return 0, Candidate{}, false
	}
	principal := parts[pvIdx:]
	if len(principal) == 0 {
		return 0, Candidate{}, false
	}

	cand := Candidate{
		Move:      principal[0],
		Score:     score,
		Principal: append([]string(nil), principal...),
	}
	return multipv, cand, true
}

func collapseCandidates(m map[int]Candidate) []Candidate {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	result := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		result = append(result, m[k])
	}
	return result
}

func (s *Session) EnsureReady(ctx context.Context) error {
	if !s.Available() {
		return fmt.Errorf("engine session unavailable")
	}

	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// NewGame clears the engine's search state (hash, history heuristics) so a
// reused session starts the next game cold, then waits for it to come back
// ready.
func (s *Session) NewGame(ctx context.Context) error {
	if !s.Available() {
		return fmt.Errorf("engine session unavailable")
	}
	if err := s.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}

	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

// Close terminates the engine process. Calling it again returns the first
// result without touching the process a second time.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closedMu.Lock()
		s.closed = true
		s.closedMu.Unlock()

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.stdin != nil {
			s.stdin.Close()
		}
		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		if s.cmd != nil {
			s.closeErr = s.cmd.Wait()
		}
	})
	return s.closeErr
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}

	return nil
}

func (s *Session) applyOptions(opt Options) error {
	threadCount := opt.Threads
	if threadCount <= 0 {
		threadCount = 1
	}
	hashMB := opt.HashMB
	if hashMB <= 0 {
		hashMB = 64
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threadCount),
		fmt.Sprintf("setoption name Hash value %d\n", hashMB),
		"setoption name Move Overhead value 100\n",
	}
	if opt.SkillLevel > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Skill Level value %d\n", opt.SkillLevel))
	}
	if opt.Elo > 0 {
		cmds = append(cmds,
			"setoption name UCI_LimitStrength value true\n",
			fmt.Sprintf("setoption name UCI_Elo value %d\n", opt.Elo),
		)
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		s.closedMu.Lock()
		s.readStale = true
		s.closedMu.Unlock()
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
