package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/weaveapp/weave/backend/internal/database"
	"github.com/weaveapp/weave/backend/internal/models"
	"github.com/weaveapp/weave/backend/internal/util"
)

// SendMessageRequest is the payload for a direct message
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" binding:"required"`
	Content     string `json:"content"`
}

// SendMessage sends a direct message to another user
// POST /api/v1/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid message payload: "+err.Error())
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		util.RespondValidationError(c, "content", "message must not be empty")
		return
	}
	if req.RecipientID == userID {
		util.RespondValidationError(c, "recipient_id", "you cannot message yourself")
		return
	}

	var recipient models.User
	err := database.DB.First(&recipient, "id = ?", req.RecipientID).Error
	if util.HandleDBError(c, err, "user") {
		return
	}

	// A block in either direction closes the conversation
	var blockCount int64
	err = database.DB.Model(&models.BlockedUser{}).
		Where("(user_id = ? AND blocked_user_id = ?) OR (user_id = ? AND blocked_user_id = ?)",
			userID, recipient.ID, recipient.ID, userID).
		Count(&blockCount).Error
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}
	if blockCount > 0 {
		util.RespondForbidden(c, "you cannot message this user")
		return
	}

	message := models.Message{
		SenderID:    userID,
		RecipientID: recipient.ID,
		Content:     content,
	}
	if err := database.DB.Create(&message).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": message})
}

// GetConversation lists messages between the current user and another user,
// oldest first
// GET /api/v1/messages/:id
func (h *Handlers) GetConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	otherID := c.Param("id")

	limit, offset := util.ClampPage(
		util.ParseInt(c.Query("limit"), 50),
		util.ParseInt(c.Query("offset"), 0),
		200,
	)

	var messages []models.Message
	err := database.DB.Preload("Sender").
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&messages).Error
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"limit":    limit,
		"offset":   offset,
	})
}

// conversationSummary is one row of the conversation list.
type conversationSummary struct {
	User        models.User    `json:"user"`
	LastMessage models.Message `json:"last_message"`
	UnreadCount int64          `json:"unread_count"`
}

// GetConversations lists the current user's conversations, most recent
// activity first
// GET /api/v1/messages
func (h *Handlers) GetConversations(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	// Pull the user's recent messages and fold them into per-peer
	// conversations in memory. Fine at DM volumes; revisit if the
	// message table ever gets a conversation id.
	var messages []models.Message
	err := database.DB.
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(500).
		Find(&messages).Error
	if err != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	peerOrder := []string{}
	latest := map[string]models.Message{}
	unread := map[string]int64{}
	for _, m := range messages {
		peer := m.RecipientID
		if m.SenderID != userID {
			peer = m.SenderID
		}
		if _, seen := latest[peer]; !seen {
			latest[peer] = m
			peerOrder = append(peerOrder, peer)
		}
		if m.RecipientID == userID && !m.IsRead {
			unread[peer]++
		}
	}

	if len(peerOrder) == 0 {
		c.JSON(http.StatusOK, gin.H{"conversations": []conversationSummary{}})
		return
	}

	var peers []models.User
	if err := database.DB.Where("id IN ?", peerOrder).Find(&peers).Error; err != nil {
		util.RespondUpstream(c, "data store")
		return
	}
	peersByID := make(map[string]models.User, len(peers))
	for _, p := range peers {
		peersByID[p.ID] = p
	}

	conversations := make([]conversationSummary, 0, len(peerOrder))
	for _, peerID := range peerOrder {
		peer, found := peersByID[peerID]
		if !found {
			continue // peer account deleted
		}
		conversations = append(conversations, conversationSummary{
			User:        peer,
			LastMessage: latest[peerID],
			UnreadCount: unread[peerID],
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// MarkConversationRead marks all messages from the other user as read
// POST /api/v1/messages/:id/read
func (h *Handlers) MarkConversationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result := database.DB.Model(&models.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = ?", c.Param("id"), userID, false).
		Update("is_read", true)
	if result.Error != nil {
		util.RespondUpstream(c, "data store")
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked_read": result.RowsAffected})
}
