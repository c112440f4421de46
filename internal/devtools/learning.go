package devtools

import (
	"edujourney/internal/journey"

	"github.com/gin-gonic/gin"
)

func (s *Server) listSubjects(c *gin.Context) {
	out := make([]gin.H, 0, len(s.pack.Subjects))
	for _, sub := range s.pack.Subjects {
		out = append(out, subjectJSON(sub))
	}
	success(c, out)
}

func (s *Server) getSubject(c *gin.Context) {
	sub, found := s.pack.Subject(c.Param("id"))
	if !found {
		notFound(c, "Subject")
		return
	}
	success(c, subjectJSON(sub))
}

func (s *Server) subjectLevelsByClass(c *gin.Context) {
	classID := c.Param("classId")
	out := make([]gin.H, 0)
	for _, sl := range s.pack.SubjectLevels {
		if itoa(sl.ClassID) == classID {
			out = append(out, s.subjectLevelJSON(sl))
		}
	}
	success(c, out)
}

func (s *Server) subjectLevelsBySubject(c *gin.Context) {
	out := make([]gin.H, 0)
	for _, sl := range s.pack.SubjectLevels {
		if sl.SubjectID == c.Param("id") {
			out = append(out, s.subjectLevelJSON(sl))
		}
	}
	success(c, out)
}

func (s *Server) levelsBySubject(c *gin.Context) {
	out := make([]journey.Level, 0)
	for _, sl := range s.pack.SubjectLevels {
		if sl.SubjectID != c.Param("id") {
			continue
		}
		for _, l := range s.pack.LevelsFor(sl.ID) {
			out = append(out, l.JourneyLevel())
		}
	}
	success(c, out)
}

func (s *Server) levelsBySubjectLevel(c *gin.Context) {
	levels := s.pack.LevelsFor(c.Param("id"))
	out := make([]journey.Level, 0, len(levels))
	for _, l := range levels {
		out = append(out, l.JourneyLevel())
	}
	success(c, out)
}

func (s *Server) getLevel(c *gin.Context) {
	l, found := s.pack.Level(c.Param("id"))
	if !found {
		notFound(c, "Level")
		return
	}
	lvl := l.JourneyLevel()
	lvl.Materials = l.WireMaterials()
	success(c, lvl)
}

// getMaterials answers in the wrapped shape; some backends return the
// bare array instead.
func (s *Server) getMaterials(c *gin.Context) {
	l, found := s.pack.Level(c.Param("id"))
	if !found {
		notFound(c, "Level")
		return
	}
	success(c, gin.H{"materials": l.WireMaterials()})
}

func subjectJSON(sub FixtureSubject) gin.H {
	return gin.H{"id": journey.ID(sub.ID), "name": sub.Name, "description": sub.Description}
}

func (s *Server) subjectLevelJSON(sl FixtureSubjectLvl) gin.H {
	out := gin.H{"id": journey.ID(sl.ID), "subject_id": journey.ID(sl.SubjectID), "class_id": sl.ClassID}
	if sub, found := s.pack.Subject(sl.SubjectID); found {
		out["subjects"] = subjectJSON(sub)
	}
	return out
}
