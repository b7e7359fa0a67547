package http

import (
	"net/http"

	"github.com/dkeye/Mesh/internal/app"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/gin-gonic/gin"
)

type roomsHandler struct {
	rooms *app.RoomRegistry
}

type MembersResponse struct {
	Room    domain.RoomID   `json:"room"`
	Members []domain.Member `json:"members"`
}

func (h *roomsHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, h.rooms.List())
}

func (h *roomsHandler) members(c *gin.Context) {
	id := domain.NormalizeRoomID(c.Param("id"))
	if id.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid room id"})
		return
	}
	members := h.rooms.MembersOf(id)
	if len(members) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, MembersResponse{Room: id, Members: members})
}
