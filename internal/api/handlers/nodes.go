package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListRoots handles GET / and returns every root with its subtree.
func (s *Server) ListRoots(c *gin.Context) {
	docs, err := s.nodes.ListRoots(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// CreateNode handles POST /.
func (s *Server) CreateNode(c *gin.Context) {
	var req createNodeRequest
	if err := decodeBody(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		_ = c.Error(err)
		return
	}

	doc, err := s.nodes.Create(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// GetNode handles GET /{id}/.
func (s *Server) GetNode(c *gin.Context) {
	id, err := parseNodeID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	doc, err := s.nodes.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// UpdateNode handles PUT /{id}/.
func (s *Server) UpdateNode(c *gin.Context) {
	id, err := parseNodeID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req updateNodeRequest
	if err := decodeBody(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		_ = c.Error(err)
		return
	}

	doc, err := s.nodes.Update(c.Request.Context(), id, in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteNode handles DELETE /{id}/.
func (s *Server) DeleteNode(c *gin.Context) {
	id, err := parseNodeID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := s.nodes.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegenerateChildren handles POST /{id}/nodes/.
func (s *Server) RegenerateChildren(c *gin.Context) {
	id, err := parseNodeID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req regenerateRequest
	if err := decodeBody(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	count, err := req.count()
	if err != nil {
		_ = c.Error(err)
		return
	}

	out, err := s.nodes.RegenerateChildren(c.Request.Context(), id, count)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}
