package rest

import (
	"net/http"

	"github.com/dmitrijs2005/diarykeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type accessURLRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleCreateEntry(c *gin.Context) {
	var in services.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON body", "error": err.Error()})
		return
	}

	entry, err := s.entries.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		s.writeError(c, "Could not create entry", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Entry created", "entry": entry})
}

func (s *Server) handleListEntries(c *gin.Context) {
	page, err := s.entries.List(c.Request.Context(), userID(c), services.ListParams{
		Page:   c.Query("page"),
		Size:   c.Query("size"),
		After:  c.Query("after"),
		Before: c.Query("before"),
	})
	if err != nil {
		s.writeError(c, "Could not list entries", err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetEntry(c *gin.Context) {
	entry, err := s.entries.GetByID(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, "Could not get entry", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

func (s *Server) handleEntriesByDate(c *gin.Context) {
	list, err := s.entries.ListByDate(c.Request.Context(), userID(c), c.Param("date"))
	if err != nil {
		s.writeError(c, "Could not get entries", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": list})
}

func (s *Server) handleDeleteEntry(c *gin.Context) {
	res, err := s.entries.Delete(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, "Could not delete entry", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Entry deleted",
		"entryId":        res.EntryID,
		"deletedObjects": res.DeletedObjects,
	})
}

func (s *Server) handleUploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON body", "error": err.Error()})
		return
	}

	u, err := s.attachments.IssueUploadURL(c.Request.Context(), userID(c), req.Filename, req.ContentType)
	if err != nil {
		s.writeError(c, "Could not issue upload URL", err)
		return
	}

	c.JSON(http.StatusOK, u)
}

func (s *Server) handleAccessURL(c *gin.Context) {
	var req accessURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON body", "error": err.Error()})
		return
	}

	u, err := s.attachments.IssueAccessURL(c.Request.Context(), userID(c), req.Key)
	if err != nil {
		s.writeError(c, "Could not issue access URL", err)
		return
	}

	c.JSON(http.StatusOK, u)
}
