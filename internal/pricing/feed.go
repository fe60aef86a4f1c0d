package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PriceMessage is one price update from a stream.
type PriceMessage struct {
	Price float64
}

// Feed opens a price stream for one token. The returned channel is closed
// when the stream ends for any reason; reconnecting is the caller's job.
type Feed interface {
	Open(ctx context.Context, token string, decimals int) (<-chan PriceMessage, error)
}

// Default WSFeed settings.
const (
	DefaultDialTimeout = 10 * time.Second
	DefaultReadTimeout = 2 * time.Minute
)

// WSFeed streams prices from the price engine websocket,
// one connection per token at `<endpoint>?token=<mint>&token_decimal=<decimals>`.
type WSFeed struct {
	endpoint    string
	dialer      *websocket.Dialer
	readTimeout time.Duration
	logger      *zap.Logger
}

// NewWSFeed creates a websocket price feed.
func NewWSFeed(endpoint string, logger *zap.Logger) *WSFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSFeed{
		endpoint: endpoint,
		dialer: &websocket.Dialer{
			HandshakeTimeout: DefaultDialTimeout,
		},
		readTimeout: DefaultReadTimeout,
		logger:      logger.Named("price_feed"),
	}
}

// streamURL builds the subscription URL for token.
func (f *WSFeed) streamURL(token string, decimals int) (string, error) {
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse price endpoint: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("token_decimal", strconv.Itoa(decimals))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// priceFrame is the wire message. Price is absent on some frames.
type priceFrame struct {
	Price *float64 `json:"price"`
}

// Open implements Feed.
func (f *WSFeed) Open(ctx context.Context, token string, decimals int) (<-chan PriceMessage, error) {
	u, err := f.streamURL(token, decimals)
	if err != nil {
		return nil, err
	}

	conn, _, err := f.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial price stream: %w", err)
	}

	out := make(chan PriceMessage, 16)
	log := f.logger.With(zap.String("token", token))

	// Unblock ReadMessage on cancellation.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	go func() {
		defer close(out)
		defer close(stop)
		defer conn.Close()

		for {
			if f.readTimeout > 0 {
				conn.SetReadDeadline(time.Now().Add(f.readTimeout))
			}
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("price stream read failed", zap.Error(err))
				}
				return
			}

			var frame priceFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				log.Debug("skipping malformed price frame", zap.Error(err))
				continue
			}
			msg := PriceMessage{}
			if frame.Price != nil {
				msg.Price = *frame.Price
			}

			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
