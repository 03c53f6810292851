package exchange

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"auto_trader/pkg/logger"
)

const okxPublicWSURL = "wss://ws.okx.com:8443/ws/v5/public"

// Tick — последняя цена из публичного стрима.
type Tick struct {
	Symbol string
	Last   float64
}

// StreamTickers держит публичный WS и обновляет кэш последних цен.
// Канал отдаёт цены по мере прихода; переподключение с бэкоффом внутри.
func (c *OKXClient) StreamTickers(ctx context.Context, symbols []string) <-chan Tick {
	ch := make(chan Tick)
	go func() {
		defer close(ch)
		dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		retry := 0
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			conn, _, err := dialer.DialContext(ctx, okxPublicWSURL, nil)
			if err != nil {
				retry++
				if retry > 8 {
					logger.Error("okx ws: giving up after %d retries: %v", retry, err)
					return
				}
				time.Sleep(time.Duration(300*retry) * time.Millisecond)
				continue
			}
			retry = 0

			args := make([]map[string]string, 0, len(symbols))
			for _, s := range symbols {
				args = append(args, map[string]string{"channel": "tickers", "instId": s})
			}
			_ = conn.WriteJSON(map[string]any{"op": "subscribe", "args": args})

			stopPing := make(chan struct{})
			go func() {
				t := time.NewTicker(15 * time.Second)
				defer t.Stop()
				for {
					select {
					case <-stopPing:
						return
					case <-ctx.Done():
						return
					case <-t.C:
						_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
					}
				}
			}()

			for {
				var frame struct {
					Arg struct {
						Channel string `json:"channel"`
						InstID  string `json:"instId"`
					} `json:"arg"`
					Data []struct {
						Last string `json:"last"`
					} `json:"data"`
				}
				if err := conn.ReadJSON(&frame); err != nil {
					close(stopPing)
					_ = conn.Close()
					break
				}
				if frame.Arg.Channel != "tickers" || len(frame.Data) == 0 {
					continue
				}

				last := parseFloat(frame.Data[0].Last)
				if last == 0 {
					continue
				}

				c.mu.Lock()
				c.prices[frame.Arg.InstID] = last
				c.mu.Unlock()

				select {
				case ch <- Tick{Symbol: frame.Arg.InstID, Last: last}:
				case <-ctx.Done():
					_ = conn.Close()
					return
				default:
					// Медленный потребитель не должен тормозить чтение сокета.
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(time.Second)
			}
		}
	}()
	return ch
}
