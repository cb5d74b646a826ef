package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/requestdata"
	"github.com/compasshq/compass-backend/internal/services"
	"github.com/compasshq/compass-backend/internal/sse"
)

type ChatHandler struct {
	log    *logger.Logger
	chat   services.ChatService
	stream services.StreamService
}

func NewChatHandler(log *logger.Logger, chat services.ChatService, stream services.StreamService) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: chat, stream: stream}
}

// userID pulls the authenticated identity placed by the auth
// middleware. The middleware guarantees its presence on /api routes.
func userID(c *gin.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		return uuid.Nil, apierr.Unauthorized("missing_identity", fmt.Errorf("no identity on request"))
	}
	return rd.UserID, nil
}

type createChatRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	var req createChatRequest
	_ = c.ShouldBindJSON(&req)
	chat, err := h.chat.CreateChat(c.Request.Context(), uid, req.Title)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, chat)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	chats, err := h.chat.ListChats(c.Request.Context(), uid)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"chats": chats})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_chat_id", fmt.Errorf("invalid chat id: %w", err)))
		return
	}
	messages, err := h.chat.GetMessages(c.Request.Context(), uid, chatID)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"messages": messages})
}

type saveMessageRequest struct {
	ChatID  uuid.UUID `json:"chat_id"`
	Role    string    `json:"role"`
	Content string    `json:"content"`
}

func (h *ChatHandler) SaveMessage(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	var req saveMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err)))
		return
	}
	msg, err := h.chat.SaveMessage(c.Request.Context(), uid, req.ChatID, req.Role, req.Content)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, msg)
}

type renameChatRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) RenameChat(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_chat_id", fmt.Errorf("invalid chat id: %w", err)))
		return
	}
	var req renameChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err)))
		return
	}
	chat, err := h.chat.RenameChat(c.Request.Context(), uid, chatID, req.Title)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, chat)
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_chat_id", fmt.Errorf("invalid chat id: %w", err)))
		return
	}
	if err := h.chat.DeleteChat(c.Request.Context(), uid, chatID); err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

type generateTitleRequest struct {
	ChatID  uuid.UUID `json:"chat_id"`
	Message string    `json:"message"`
}

func (h *ChatHandler) GenerateTitle(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	var req generateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err)))
		return
	}
	title, err := h.chat.GenerateTitle(c.Request.Context(), uid, req.ChatID, req.Message)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"title": title})
}

type streamChatRequest struct {
	ChatID  uuid.UUID `json:"chat_id"`
	Message string    `json:"message"`
	Images  []struct {
		URL    string `json:"url"`
		Detail string `json:"detail"`
	} `json:"images"`
}

// StreamChat is the live chat endpoint. Errors before the first byte
// use the JSON envelope; once streaming starts, failures surface as an
// error event on the stream.
func (h *ChatHandler) StreamChat(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	var req streamChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err)))
		return
	}
	if req.ChatID == uuid.Nil {
		RespondError(c, h.log, apierr.BadRequest("missing_chat_id", fmt.Errorf("chat_id is required")))
		return
	}

	images := make([]openai.ImageInput, 0, len(req.Images))
	for _, img := range req.Images {
		if img.URL == "" {
			continue
		}
		images = append(images, openai.ImageInput{ImageURL: img.URL, Detail: img.Detail})
	}

	stream, err := sse.NewStream(c.Writer)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	_, err = h.stream.StreamChat(c.Request.Context(), services.StreamParams{
		UserID:  uid,
		ChatID:  req.ChatID,
		Message: req.Message,
		Images:  images,
		OnDelta: func(delta string) {
			if err := stream.Chunk(delta); err != nil {
				h.log.Debug("client went away mid-stream", "chat_id", req.ChatID.String())
			}
		},
	})
	if err != nil {
		if openai.IsAuthError(err) {
			h.log.Error("provider auth failure during stream", "error", err)
		}
		StreamError(stream, h.log, err)
		return
	}
	stream.Done()
}
