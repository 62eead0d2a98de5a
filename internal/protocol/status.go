package protocol

import (
	"encoding/json"
	"fmt"
)

// Protocol version advertised in the synthesized status response.
// 766 = Minecraft 1.20.5. The value only affects the compatibility
// marker in the client's server list; any client may still ping us.
const (
	StatusProtocolVersion = 766
	StatusVersionName     = "MCNap (1.20.5)"
)

// StatusResponse is the JSON document rendered in the client's server
// list. Field names and nesting must match the vanilla server exactly.
type StatusResponse struct {
	Version StatusVersion `json:"version"`
	Players StatusPlayers `json:"players"`
	// Description is a chat component: text with optional styling.
	Description ChatComponent `json:"description"`
	// Favicon is "data:image/png;base64,…" of a 64x64 PNG, omitted
	// when no icon is configured.
	Favicon string `json:"favicon,omitempty"`
}

type StatusVersion struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

type StatusPlayers struct {
	Max    int      `json:"max"`
	Online int      `json:"online"`
	Sample []string `json:"sample"`
}

// ChatComponent is the minimal chat-component shape MCNap emits, used
// for both the MOTD and the login disconnect message.
type ChatComponent struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
	Bold  bool   `json:"bold,omitempty"`
}

// PresetPackets holds the two response packets that never change for
// the lifetime of a run, serialized once from config at startup.
type PresetPackets struct {
	// Status is the full status-response packet answering a
	// server-list ping.
	Status []byte
	// LoginDisconnect is the login-phase disconnect packet shown to
	// the player whose join triggered activation.
	LoginDisconnect []byte
}

// BuildPresetPackets serializes the status response and the starting
// message from the configured MOTD values. iconBase64 may be empty.
func BuildPresetPackets(motd, connectionMsg ChatComponent, iconBase64 string) (*PresetPackets, error) {
	status := StatusResponse{
		Version: StatusVersion{
			Name:     StatusVersionName,
			Protocol: StatusProtocolVersion,
		},
		Players: StatusPlayers{
			Max:    0,
			Online: 0,
			Sample: []string{},
		},
		Description: motd,
	}
	if iconBase64 != "" {
		status.Favicon = "data:image/png;base64," + iconBase64
	}

	statusJSON, err := json.Marshal(status)
	if err != nil {
		return nil, fmt.Errorf("marshaling status response: %w", err)
	}
	disconnectJSON, err := json.Marshal(connectionMsg)
	if err != nil {
		return nil, fmt.Errorf("marshaling disconnect message: %w", err)
	}

	return &PresetPackets{
		Status:          EncodePacket(IDStatusResponse, AppendString(nil, string(statusJSON))),
		LoginDisconnect: EncodePacket(IDLoginDisconnect, AppendString(nil, string(disconnectJSON))),
	}, nil
}

// EncodePong echoes a ping payload back as a pong packet. The 8-byte
// payload is opaque to the server; the client uses it to measure latency.
func EncodePong(payload []byte) []byte {
	return EncodePacket(IDPong, payload)
}
