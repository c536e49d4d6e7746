package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"voxelfield.ai/internal/protocol"
)

// bot is a headless pilot: it captures the cursor, flies forward while
// sweeping the view in a slow circle, and logs the basis it gets back.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "client name")
		rateHz = flag.Int("rate", 30, "INPUT messages per second")
		sweep  = flag.Float64("sweep", 4, "horizontal mouse units per INPUT")
		every  = flag.Uint64("log_every", 60, "log one BASIS per N ticks")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Viewport:        &protocol.Viewport{Width: 1280, Height: 720},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	// Reader goroutine; gorilla allows one reader and one writer at a time.
	welcomed := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		var once bool
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeWelcome:
				var w protocol.WelcomeMsg
				if err := json.Unmarshal(msg, &w); err != nil {
					continue
				}
				logger.Printf("WELCOME client_id=%s size=%d digest=%.12s tick_rate=%d",
					w.ClientID, w.Volume.Size, w.Volume.Digest, w.Camera.TickRateHz)
				if !once {
					once = true
					close(welcomed)
				}
			case protocol.TypeBasis:
				var b protocol.BasisMsg
				if err := json.Unmarshal(msg, &b); err != nil {
					continue
				}
				if *every > 0 && b.Tick%*every == 0 {
					logger.Printf("BASIS tick=%d eye=%.2f forward=%.3f captured=%v", b.Tick, b.Eye, b.Forward, b.Captured)
				}
			case protocol.TypeError:
				var e protocol.ErrorMsg
				if err := json.Unmarshal(msg, &e); err == nil {
					logger.Printf("ERROR %s: %s", e.Code, e.Message)
				}
			}
		}
	}()

	select {
	case <-welcomed:
	case <-done:
		return
	case <-stop:
		return
	}

	interval := time.Second / time.Duration(max(*rateHz, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-stop:
			in := protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version, Release: true}
			_ = conn.WriteJSON(in)
			return
		case <-done:
			return
		case <-ticker.C:
			seq++
			// Small vertical wobble so the pitch clamp gets exercised over time.
			dy := float32(math.Sin(float64(seq)/50) * 6)
			in := protocol.InputMsg{
				Type:            protocol.TypeInput,
				ProtocolVersion: protocol.Version,
				Seq:             seq,
				Keys:            protocol.Keys{Forward: true},
				MouseDeltas:     [][2]float32{{float32(*sweep), dy}},
				Capture:         seq == 1,
			}
			if err := conn.WriteJSON(in); err != nil {
				logger.Printf("send INPUT: %v", err)
				return
			}
		}
	}
}
