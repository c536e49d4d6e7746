package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	"voxelfield.ai/internal/protocol"
	"voxelfield.ai/internal/sim/world"
	"voxelfield.ai/internal/sim/world/camera"
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		clientID, out := s.handshake(r.Context(), conn)
		if clientID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Errors use their own queue so BASIS drop-oldest never discards them.
		errs := make(chan []byte, 8)

		// Writer goroutine.
		go func() {
			for {
				var b []byte
				var ok bool
				select {
				case <-ctx.Done():
					return
				case b, ok = <-errs:
				case b, ok = <-out:
				}
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			env, code, detail := decodeInput(clientID, msg)
			if code != "" {
				queueError(errs, code, detail)
				continue
			}
			select {
			case s.world.Inbox() <- env:
			case <-ctx.Done():
			case <-s.world.Done():
			}
		}

		// Cleanup.
		s.leave(clientID)
	}
}

func (s *Server) leave(clientID string) {
	select {
	case s.world.Leave() <- clientID:
	case <-s.world.Done():
	}
}

// decodeInput turns an INPUT frame into a world envelope. A non-empty code
// means the frame was rejected.
func decodeInput(clientID string, msg []byte) (world.InputEnvelope, string, string) {
	base, err := protocol.ValidateClient(msg)
	if err != nil {
		return world.InputEnvelope{}, protocol.ErrProtoBadRequest, err.Error()
	}
	if base.Type != protocol.TypeInput {
		return world.InputEnvelope{}, protocol.ErrProtoBadRequest, "expected INPUT"
	}
	if base.ProtocolVersion != protocol.Version {
		return world.InputEnvelope{}, protocol.ErrProtoVersion, "bad protocol_version"
	}
	var in protocol.InputMsg
	if err := json.Unmarshal(msg, &in); err != nil {
		return world.InputEnvelope{}, protocol.ErrProtoBadRequest, err.Error()
	}
	env := world.InputEnvelope{
		ClientID: clientID,
		Input: camera.Input{
			Forward: in.Keys.Forward,
			Back:    in.Keys.Back,
			Left:    in.Keys.Left,
			Right:   in.Keys.Right,
			Capture: in.Capture,
			Release: in.Release,
		},
	}
	for _, d := range in.MouseDeltas {
		env.Input.MouseDeltas = append(env.Input.MouseDeltas, mgl32.Vec2{d[0], d[1]})
	}
	if in.Viewport != nil {
		vp, err := camera.NewViewport(in.Viewport.Width, in.Viewport.Height)
		if err != nil {
			return world.InputEnvelope{}, protocol.ErrBadViewport, err.Error()
		}
		env.Viewport = &vp
	}
	return env, "", ""
}

func queueError(errs chan []byte, code, detail string) {
	b, err := json.Marshal(protocol.NewError(code, detail))
	if err != nil {
		return
	}
	select {
	case errs <- b:
	default:
	}
}

// handshake returns an empty clientID when the connection should be closed,
// including when the world loop has already stopped.
func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (clientID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.ValidateClient(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	var vp *camera.Viewport
	if hello.Viewport != nil {
		v, err := camera.NewViewport(hello.Viewport.Width, hello.Viewport.Height)
		if err != nil {
			_ = writeJSON(conn, protocol.NewError(protocol.ErrBadViewport, err.Error()))
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad viewport"), time.Now().Add(time.Second))
			return "", nil
		}
		vp = &v
	}
	if hello.ClientName == "" {
		hello.ClientName = "viewer"
	}

	// A renderer only ever wants the newest basis.
	out = make(chan []byte, 4)

	respCh := make(chan world.JoinResponse, 1)
	select {
	case s.world.Join() <- world.JoinRequest{Name: hello.ClientName, Out: out, Resp: respCh}:
	case <-s.world.Done():
		return "", nil
	case <-ctx.Done():
		return "", nil
	}
	var resp world.JoinResponse
	select {
	case resp = <-respCh:
	case <-s.world.Done():
		return "", nil
	case <-ctx.Done():
		return "", nil
	}
	if s.log != nil {
		s.log.Printf("client %s (%s) joined", resp.ClientID, hello.ClientName)
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.leave(resp.ClientID)
		return "", nil
	}
	if vp != nil {
		select {
		case s.world.Inbox() <- world.InputEnvelope{ClientID: resp.ClientID, Viewport: vp}:
		case <-s.world.Done():
			return "", nil
		}
	}
	return resp.ClientID, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
