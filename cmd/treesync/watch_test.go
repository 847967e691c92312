package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/treesync/internal/config"
)

func TestFollow(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		run     func(events chan config.Event, errs chan error, cancel context.CancelFunc)
		want    []string
		wantErr error
	}{
		{
			name: "events until closed",
			run: func(events chan config.Event, errs chan error, _ context.CancelFunc) {
				errs <- errors.New("overflow")
				events <- config.Event{Path: "a"}
				events <- config.Event{Path: "b"}
				close(events)
			},
			want: []string{"a", "b"},
		},
		{
			name: "closed error channel is dropped",
			run: func(events chan config.Event, errs chan error, _ context.CancelFunc) {
				close(errs)
				events <- config.Event{Path: "a"}
				time.Sleep(10 * time.Millisecond)
				events <- config.Event{Path: "b"}
				close(events)
			},
			want: []string{"a", "b"},
		},
		{
			name: "handler failure stops",
			run: func(events chan config.Event, _ chan error, _ context.CancelFunc) {
				events <- config.Event{Path: "fail"}
			},
			want:    []string{"fail"},
			wantErr: boom,
		},
		{
			name: "cancelled",
			run: func(_ chan config.Event, errs chan error, cancel context.CancelFunc) {
				close(errs)
				cancel()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			events := make(chan config.Event)
			errs := make(chan error)

			var seen []string
			done := make(chan error, 1)
			go func() {
				done <- follow(ctx, events, errs, slog.New(slog.DiscardHandler), func(ev config.Event) error {
					seen = append(seen, ev.Path)
					if ev.Path == "fail" {
						return boom
					}
					return nil
				})
			}()
			tt.run(events, errs, cancel)

			select {
			case err := <-done:
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					require.NoError(t, err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("follow did not return")
			}
			assert.Equal(t, tt.want, seen)
		})
	}
}
