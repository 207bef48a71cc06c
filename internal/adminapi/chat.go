package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughstock/internal/chat"
	"github.com/talkincode/toughstock/internal/webserver"
)

type chatPayload struct {
	Message string `json:"message"`
}

type chatReply struct {
	Reply   string           `json:"reply"`
	Step    chat.Step        `json:"step"`
	Session chat.ChatSession `json:"session"`
}

// registerChatRoutes exposes the guided command interpreter; each
// authenticated user gets their own session
func registerChatRoutes() {
	webserver.ApiPOST("/chat", chatMessage)
	webserver.ApiGET("/chat", chatSession)
	webserver.ApiDELETE("/chat", chatReset)
}

func chatMessage(c echo.Context) error {
	var payload chatPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse message", err.Error())
	}
	key := webserver.CurrentUser(c).Username
	reply, sess := GetAppContext(c).Chats().Handle(c.Request().Context(), key, payload.Message)
	return ok(c, chatReply{Reply: reply, Step: sess.Step, Session: sess})
}

func chatSession(c echo.Context) error {
	return ok(c, GetAppContext(c).Chats().Session(webserver.CurrentUser(c).Username))
}

func chatReset(c echo.Context) error {
	GetAppContext(c).Chats().Reset(webserver.CurrentUser(c).Username)
	return ok(c, map[string]interface{}{"step": chat.StepIdle})
}
