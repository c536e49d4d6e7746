package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	ClientName      string    `json:"client_name,omitempty"`
	Viewport        *Viewport `json:"viewport,omitempty"`
}

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ClientID        string       `json:"client_id"`
	Volume          VolumeParams `json:"volume"`
	Camera          CameraParams `json:"camera"`
}

// VolumeParams describe the texture the renderer should allocate and fetch
// from /v1/volume.
type VolumeParams struct {
	Size        int    `json:"size"`
	Format      string `json:"format"`
	Digest      string `json:"digest"`
	ConfigHash  string `json:"config_hash"`
	Seed        int64  `json:"seed"`
	LightPasses int    `json:"light_passes"`
}

type CameraParams struct {
	TickRateHz int        `json:"tick_rate_hz"`
	Spawn      [3]float32 `json:"spawn"`
	Bound      float32    `json:"bound"`
}

// INPUT (client -> server): everything collected since the previous INPUT.
type InputMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Seq             uint64       `json:"seq,omitempty"`
	Keys            Keys         `json:"keys"`
	MouseDeltas     [][2]float32 `json:"mouse_deltas,omitempty"`
	Capture         bool         `json:"capture,omitempty"`
	Release         bool         `json:"release,omitempty"`
	Viewport        *Viewport    `json:"viewport,omitempty"`
}

type Keys struct {
	Forward bool `json:"forward,omitempty"`
	Back    bool `json:"back,omitempty"`
	Left    bool `json:"left,omitempty"`
	Right   bool `json:"right,omitempty"`
}

// BASIS (server -> client), one per tick.
type BasisMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Eye             [3]float32 `json:"eye"`
	Forward         [3]float32 `json:"forward"`
	Right           [3]float32 `json:"right"`
	Up              [3]float32 `json:"up"`
	Captured        bool       `json:"captured"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
	Seq             uint64 `json:"seq,omitempty"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
