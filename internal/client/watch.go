package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// ErrWatchClosed is returned when the server closed the feed before a
// terminal status arrived.
var ErrWatchClosed = errors.New("watch closed before recording finished")

// Watch streams status changes of a recording over a websocket. onStatus is
// called for every change; return an error from it to stop watching. Watch
// returns the terminal status once the recording is done or error.
func (c *Client) Watch(ctx context.Context, id string, onStatus func(StatusView) error) (*StatusView, error) {
	wsEndpoint := c.baseURL
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint + "/api/recordings/" + url.PathEscape(id) + "/watch")
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	var once sync.Once
	closeConn := func() { once.Do(func() { conn.Close() }) }
	defer closeConn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	var last *StatusView
	for {
		var view StatusView
		if err := conn.ReadJSON(&view); err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			if last != nil && last.IsTerminal() {
				return last, nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return last, ErrWatchClosed
			}
			return last, fmt.Errorf("read message: %w", err)
		}
		last = &view
		if onStatus != nil {
			if err := onStatus(view); err != nil {
				return last, err
			}
		}
	}
}

// WaitOptions tunes WaitForTerminal polling.
type WaitOptions struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsed bounds the whole wait. Zero waits until ctx is done.
	MaxElapsed time.Duration
	// OnPoll is called with every status read.
	OnPoll func(StatusView)
}

// errNotTerminal keeps the backoff loop polling.
var errNotTerminal = errors.New("recording still processing")

// WaitForTerminal polls the status endpoint with exponential backoff until
// the recording is done or error.
func (c *Client) WaitForTerminal(ctx context.Context, id string, opts WaitOptions) (*StatusView, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = opts.MaxElapsed
	if opts.InitialInterval > 0 {
		bo.InitialInterval = opts.InitialInterval
	}
	if opts.MaxInterval > 0 {
		bo.MaxInterval = opts.MaxInterval
	}

	var last *StatusView
	op := func() error {
		view, err := c.GetStatus(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		last = view
		if opts.OnPoll != nil {
			opts.OnPoll(*view)
		}
		if view.IsTerminal() {
			return nil
		}
		return errNotTerminal
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if errors.Is(err, errNotTerminal) {
			return last, fmt.Errorf("timed out waiting for %s: last status %s", id, last.Status)
		}
		return last, err
	}
	return last, nil
}
