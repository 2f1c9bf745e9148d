// Package httpapi exposes the radius query as a single gin route. The
// handler is purely synchronous CPU work: one index probe plus a sort,
// against stores that never mutate once the server starts.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/grailbio/osmreduce/intern"
	"github.com/grailbio/osmreduce/model"
	"github.com/grailbio/osmreduce/spatial"
)

// Server holds the immutable, post-preprocessing dataset the query
// handler reads from: the spatial index, the flat tag-set store, and the
// string pool used to resolve tag keys and values back to text.
type Server struct {
	index   *spatial.Index
	tagSets *model.FlatTagSetStore
	strings *intern.Pool
}

// New constructs a Server over an already-built index and the stores
// needed to reconstruct tags for matched elements.
func New(index *spatial.Index, tagSets *model.FlatTagSetStore, strings *intern.Pool) *Server {
	return &Server{index: index, tagSets: tagSets, strings: strings}
}

// Register installs the query route onto engine.
func (s *Server) Register(engine *gin.Engine) {
	engine.GET("/api/query", s.handleQuery)
}

type elementResponse struct {
	ID   uint64            `json:"id"`
	Lat1 float64           `json:"lat1"`
	Lon1 float64           `json:"lon1"`
	Lat2 float64           `json:"lat2"`
	Lon2 float64           `json:"lon2"`
	Type string            `json:"type"`
	Tags map[string]string `json:"tags"`
}

type queryResponse struct {
	Elements []elementResponse `json:"elements"`
}

func (s *Server) handleQuery(c *gin.Context) {
	lat, err := parseFloatParam(c, "lat")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lon, err := parseFloatParam(c, "lon")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	radius, err := parseFloatParam(c, "radius")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if radius <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "radius must be positive"})
		return
	}

	hits := s.index.Query(lat, lon, radius)
	elements := make([]elementResponse, len(hits))
	for i, h := range hits {
		elements[i] = s.toResponse(h.Element)
	}
	c.JSON(http.StatusOK, queryResponse{Elements: elements})
}

func (s *Server) toResponse(e model.Element) elementResponse {
	typ := "way"
	if e.IsNode() {
		typ = "node"
	}
	return elementResponse{
		ID:   e.ID,
		Lat1: float64(e.Lat1),
		Lon1: float64(e.Lon1),
		Lat2: float64(e.Lat2),
		Lon2: float64(e.Lon2),
		Type: typ,
		Tags: s.resolveTags(e.TagSetID),
	}
}

func (s *Server) resolveTags(tagSetID uint32) map[string]string {
	pairs := s.tagSets.Pairs(tagSetID)
	tags := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, _ := s.strings.Lookup(p.KeyID())
		value, _ := s.strings.Lookup(p.ValueID())
		tags[key] = value
	}
	return tags
}

func parseFloatParam(c *gin.Context, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, paramError(name, "missing")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, paramError(name, "not a number")
	}
	return v, nil
}

func paramError(name, reason string) error {
	return &queryParamError{name: name, reason: reason}
}

type queryParamError struct {
	name, reason string
}

func (e *queryParamError) Error() string {
	return "parameter " + e.name + ": " + e.reason
}
