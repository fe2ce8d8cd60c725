package server

import (
	"net/http"
)

// YouTubeTranscriptRequest represents the request body for /v1/transcripts/youtube
type YouTubeTranscriptRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// handleTranscriptYouTube acquires captions without diagnosing them, so the client can edit the text first.
// A failed acquisition is still a 200 with the attempts in the outcome.
func (s *Server) handleTranscriptYouTube(w http.ResponseWriter, r *http.Request) error {
	var req YouTubeTranscriptRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	tr, err := s.diagnoser.AcquireYouTube(ctx, req.URL)
	if err != nil {
		return err
	}
	s.jsonResponse(w, http.StatusOK, tr)
	return nil
}

func (s *Server) handleTranscriptMedia(w http.ResponseWriter, r *http.Request) error {
	filename, data, _, err := s.readUpload(w, r)
	if err != nil {
		return err
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	tr, err := s.diagnoser.TranscribeMedia(ctx, filename, data)
	if err != nil {
		return err
	}
	s.jsonResponse(w, http.StatusOK, tr)
	return nil
}
