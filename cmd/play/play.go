package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/playperu/cluegame/internal/cluegame"
)

var errQuit = errors.New("quit")

// lines delivers stdin one line at a time so reads can be abandoned when
// the session ends.
type lines struct {
	ch  chan string
	err error
}

func newLines(ctx context.Context, r io.Reader) *lines {
	l := &lines{ch: make(chan string)}
	go func() {
		defer close(l.ch)
		s := bufio.NewScanner(r)
		for s.Scan() {
			select {
			case l.ch <- s.Text():
			case <-ctx.Done():
				return
			}
		}
		l.err = s.Err()
	}()
	return l
}

type game struct {
	engine   *cluegame.Engine
	in       *lines
	out      io.Writer
	interval time.Duration

	mu sync.Mutex // guards out; the boundary watcher prints too
}

func (g *game) printf(format string, args ...any) {
	g.mu.Lock()
	fmt.Fprintf(g.out, format, args...)
	g.mu.Unlock()
}

// read waits for the next input line. It fails with errQuit on end of input.
func (g *game) read(ctx context.Context, done <-chan struct{}, prompt string) (string, error) {
	g.printf("%s", prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-done:
		return "", cluegame.ErrSessionInvalidated
	case line, ok := <-g.in.ch:
		if !ok {
			if g.in.err != nil {
				return "", g.in.err
			}
			return "", errQuit
		}
		return strings.TrimSpace(line), nil
	}
}

// play runs one session: sign in, then guess until the game ends, the slot
// changes or input runs out.
func (g *game) play(ctx context.Context, name string) error {
	sess := g.engine.NewSession()
	defer sess.Close()

	if err := g.start(ctx, sess, name); err != nil {
		if errors.Is(err, errQuit) {
			return nil
		}
		return err
	}

	invalidated := make(chan struct{})
	sess.Watch(g.interval, func(next cluegame.Key) {
		g.printf("\nThe %s clues are live now. This round is over.\n", next.Slot)
		close(invalidated)
	})

	snap := sess.Snapshot()
	g.printf("Clues for %s %s. You have %d clues.\n", snap.Date, snap.Slot, snap.TotalClues)

	err := g.guessLoop(ctx, sess, invalidated)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if rerr := sess.RetryPending(flushCtx); rerr != nil {
		g.printf("Some attempts could not be saved: %v\n", rerr)
	}

	switch {
	case errors.Is(err, errQuit), errors.Is(err, cluegame.ErrSessionInvalidated):
		return nil
	}
	return err
}

func (g *game) start(ctx context.Context, sess *cluegame.Session, name string) error {
	for {
		if name == "" {
			line, err := g.read(ctx, nil, "Your name: ")
			if err != nil {
				return err
			}
			name = line
		}

		err := sess.Start(ctx, name)
		switch {
		case err == nil:
			g.printf("Welcome, %s!\n", name)
			return nil
		case errors.Is(err, cluegame.ErrInvalidParticipant):
			g.printf("%s is not on the participant list.\n", name)
		case errors.Is(err, cluegame.ErrValidatorUnavailable):
			g.printf("Could not check your name right now, try again.\n")
		case errors.Is(err, cluegame.ErrInvalidInput):
			g.printf("Please enter a name.\n")
		default:
			return err
		}
		name = ""
	}
}

func (g *game) guessLoop(ctx context.Context, sess *cluegame.Session, invalidated <-chan struct{}) error {
	for {
		clue, idx, ok := sess.Clue()
		if !ok {
			return nil
		}
		total := sess.Snapshot().TotalClues
		g.printf("\nClue %d/%d: %s\n", idx+1, total, clue)

		guess, err := g.read(ctx, invalidated, "Your guess: ")
		if err != nil {
			return err
		}
		if guess == "" {
			continue
		}

		v, err := sess.Guess(ctx, guess)
		switch {
		case errors.Is(err, cluegame.ErrInvalidInput):
			continue
		case err != nil:
			return err
		}
		if !v.Reported {
			g.printf("(attempt %d not saved yet, will retry)\n", v.Record.AttemptNumber)
		}

		switch v.State {
		case cluegame.StateWon:
			g.printf("Correct! Solved in %ds with %d attempt(s).\n", v.Record.ElapsedSeconds, v.Record.AttemptNumber)
			return nil
		case cluegame.StateLost:
			answer, _ := sess.Answer()
			g.printf("Out of clues. The movie was %s.\n", answer)
			return nil
		default:
			g.printf("Not quite.\n")
		}
	}
}
