package fakeapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

func (s *Server) profile(c *gin.Context) {
	p, _, ok := s.store.userByID(currentUser(c).ID)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) updateProfile(c *gin.Context) {
	var upd core.Profile
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	p, err := s.store.updateProfile(currentUser(c).ID, upd)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) updatePassword(c *gin.Context) {
	var req struct {
		CurrentPassword *string `json:"currentPassword"`
		NewPassword     *string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CurrentPassword == nil || req.NewPassword == nil {
		fail(c, http.StatusBadRequest, "Current password and new password are required")
		return
	}

	id := currentUser(c).ID
	_, hash, ok := s.store.userByID(id)
	if !ok {
		fail(c, http.StatusBadRequest, errUserNotFound.Error())
		return
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(*req.CurrentPassword)) != nil {
		fail(c, http.StatusBadRequest, "Current password is incorrect!")
		return
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), s.cost)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.setPassword(id, newHash); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	message(c, "Password updated successfully")
}

func (s *Server) deleteAccount(c *gin.Context) {
	p := currentUser(c)
	if err := s.store.deleteUser(p.ID); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.InfoContext(c.Request.Context(), "Account deleted", log.FieldUsername, p.Username)
	message(c, "Account deleted successfully")
}
