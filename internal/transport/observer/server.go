package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"voxelfield.ai/internal/protocol"
	simenc "voxelfield.ai/internal/sim/encoding"
	"voxelfield.ai/internal/sim/world"
	"voxelfield.ai/internal/sim/world/terrain/store"
)

// Server exposes read-only views of the field: the bootstrap document and
// the volume download a renderer uploads as its 3D texture.
type Server struct {
	world *world.World
	log   *log.Logger

	// LoopbackOnly restricts every handler to local clients.
	LoopbackOnly bool

	zstdOnce sync.Once
	zstdBody []byte
	zstdErr  error

	rleOnce sync.Once
	rleBody string
	rleErr  error
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
	}
}

type BootstrapResponse struct {
	ProtocolVersion string                `json:"protocol_version"`
	Tick            uint64                `json:"tick"`
	Volume          protocol.VolumeParams `json:"volume"`
	Camera          protocol.CameraParams `json:"camera"`
	Basis           protocol.BasisMsg     `json:"basis"`
}

type RLEVolume struct {
	Size     int    `json:"size"`
	Format   string `json:"format"`
	Digest   string `json:"digest"`
	Encoding string `json:"encoding"`
	Cells    string `json:"cells"`
}

func (s *Server) guard(rw http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if s.LoopbackOnly && !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.guard(rw, r) {
			return
		}
		f := s.world.Latest()
		resp := BootstrapResponse{
			ProtocolVersion: protocol.Version,
			Tick:            f.Tick,
			Volume:          s.world.VolumeParams(),
			Camera:          s.world.CameraParams(),
			Basis: protocol.BasisMsg{
				Type:            protocol.TypeBasis,
				ProtocolVersion: protocol.Version,
				Tick:            f.Tick,
				Eye:             f.Basis.Eye,
				Forward:         f.Basis.Forward,
				Right:           f.Basis.Right,
				Up:              f.Basis.Up,
				Captured:        f.Captured,
			},
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

// VolumeHandler serves the 2·D³ cell buffer. ?encoding=rle returns JSON with
// base64 run-length cells, ?encoding=zstd a zstd stream of the raw bytes.
func (s *Server) VolumeHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.guard(rw, r) {
			return
		}
		vol := s.world.Volume()
		h := rw.Header()
		h.Set("X-Volume-Size", strconv.Itoa(vol.Size))
		h.Set("X-Volume-Format", store.Format)
		h.Set("X-Volume-Digest", vol.DigestHex())

		switch enc := r.URL.Query().Get("encoding"); enc {
		case "", "raw":
			h.Set("Content-Type", "application/octet-stream")
			h.Set("Content-Length", strconv.Itoa(len(vol.Data)))
			_, _ = rw.Write(vol.Data)
		case "rle":
			cells, err := s.rle(vol)
			if err != nil {
				s.fail(rw, err)
				return
			}
			h.Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(RLEVolume{
				Size:     vol.Size,
				Format:   store.Format,
				Digest:   vol.DigestHex(),
				Encoding: "rle",
				Cells:    cells,
			})
		case "zstd":
			body, err := s.zstd(vol)
			if err != nil {
				s.fail(rw, err)
				return
			}
			h.Set("Content-Type", "application/zstd")
			h.Set("Content-Length", strconv.Itoa(len(body)))
			_, _ = rw.Write(body)
		default:
			http.Error(rw, "unknown encoding "+strconv.Quote(enc), http.StatusBadRequest)
		}
	}
}

func (s *Server) fail(rw http.ResponseWriter, err error) {
	if s.log != nil {
		s.log.Printf("volume encode: %v", err)
	}
	http.Error(rw, "internal error", http.StatusInternalServerError)
}

// The volume never changes after startup, so each encoding is built once.
func (s *Server) rle(vol *store.Volume) (string, error) {
	s.rleOnce.Do(func() {
		s.rleBody, s.rleErr = simenc.EncodeCells(vol.Data)
	})
	return s.rleBody, s.rleErr
}

func (s *Server) zstd(vol *store.Volume) ([]byte, error) {
	s.zstdOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			s.zstdErr = err
			return
		}
		defer enc.Close()
		s.zstdBody = enc.EncodeAll(vol.Data, make([]byte, 0, len(vol.Data)/4))
	})
	return s.zstdBody, s.zstdErr
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
