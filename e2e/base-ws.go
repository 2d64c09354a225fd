package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// frame is the wire envelope in both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set, skipping end-to-end suite")
	}
}

// WsConn dials the gateway with a bearer credential and logs the step.
func (s *BaseWsSuite) WsConn(name, token string) *websocket.Conn {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	url := fmt.Sprintf("ws://%s/ws", s.Config.ServerAddr)
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)

	socket, _, err := websocket.DefaultDialer.Dial(url, headers)
	s.Require().NoError(err, "Failed to connect to gateway at "+url)
	return socket
}

// Send writes one frame onto the socket.
func (s *BaseWsSuite) Send(socket *websocket.Conn, eventName string, data any) {
	raw, err := json.Marshal(data)
	s.Require().NoError(err)
	s.Require().NoError(socket.WriteJSON(frame{Event: eventName, Data: raw}))
}

// WaitFor reads frames until the named event arrives, logging everything
// seen on the way.
func (s *BaseWsSuite) WaitFor(socket *websocket.Conn, eventName string, timeout time.Duration) json.RawMessage {
	s.Require().NoError(socket.SetReadDeadline(time.Now().Add(timeout)))
	for {
		var f frame
		err := socket.ReadJSON(&f)
		s.Require().NoError(err, "waiting for "+eventName)
		s.T().Logf("WS <- %s %s", f.Event, string(f.Data))
		if f.Event == eventName {
			return f.Data
		}
	}
}
