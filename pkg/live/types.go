package live

import (
	"github.com/recera/graphchart/pkg/render"
	"github.com/recera/graphchart/pkg/webapp"
)

// MessageType names a live protocol message
type MessageType string

const (
	// Page to server
	MsgConfig      MessageType = "config"
	MsgDoubleClick MessageType = "dblclick"

	// Server to page
	MsgSendConfig MessageType = "sendConfig"
	MsgLoading    MessageType = "loading"
	MsgRender     MessageType = "render"
	MsgColors     MessageType = "colors"
	MsgError      MessageType = "error"
	MsgClear      MessageType = "clear"
)

// Viewport is the size of the chart area in pixels
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Inbound is a message relayed by the page. Config messages carry the host's
// webAppConfig and filters; double-clicks carry the node id, or null for the
// empty canvas.
type Inbound struct {
	Type         MessageType      `json:"type"`
	WebAppConfig webapp.RawConfig `json:"webAppConfig,omitempty"`
	Filters      webapp.FilterSet `json:"filters,omitempty"`
	Viewport     *Viewport        `json:"viewport,omitempty"`
	Node         *render.NodeID   `json:"node,omitempty"`
}

// Outbound is a message sent to the page
type Outbound struct {
	Type MessageType `json:"type"`
	*render.Frame
	Colors  map[render.NodeID]string `json:"colors,omitempty"`
	Message string                   `json:"message,omitempty"`
}
