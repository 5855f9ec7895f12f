package coach

import (
	"context"
	"fmt"
	"strings"

	adkmemory "google.golang.org/adk/memory"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/wernerpe/strava-mcp-server/internal/store"
)

// MemoryService adapts the note store to the ADK memory.Service
// interface, so the built-in agent carries coaching memory across
// conversations.
type MemoryService struct {
	svc *Service
}

// NewMemoryService creates a memory service backed by the coach
// service's note store.
func NewMemoryService(svc *Service) *MemoryService {
	return &MemoryService{svc: svc}
}

var _ adkmemory.Service = (*MemoryService)(nil)

// AddSession ingests a finished conversation as a session_summary note.
// Sessions where the agent already saved a note through the
// save_coaching_note tool are skipped to avoid duplicates.
func (m *MemoryService) AddSession(ctx context.Context, sess session.Session) error {
	events := sess.Events()

	var userQuery string
	var agentResponse string
	hasExplicitSave := false

	for event := range events.All() {
		if event.Author == "user" && event.Content != nil {
			if texts := extractText(event.Content); len(texts) > 0 {
				userQuery = strings.Join(texts, " ")
			}
		}
		if event.Author != "user" && event.LLMResponse.Content != nil {
			if texts := extractText(event.LLMResponse.Content); len(texts) > 0 {
				agentResponse = strings.Join(texts, " ")
			}
		}
		if event.Content != nil {
			for _, part := range event.Content.Parts {
				if part.FunctionCall != nil && part.FunctionCall.Name == "save_coaching_note" {
					hasExplicitSave = true
					break
				}
			}
		}
	}

	if hasExplicitSave {
		return nil
	}
	if userQuery == "" || len(agentResponse) <= 20 {
		return nil
	}

	note := &store.SessionNote{
		NoteType: store.NoteSessionSummary,
		Summary:  fmt.Sprintf("Athlete asked: %s\nCoach advised: %s", userQuery, agentResponse),
	}
	if err := m.svc.SaveNote(ctx, note); err != nil {
		return fmt.Errorf("failed to save session to memory: %w", err)
	}
	return nil
}

// Search performs a similarity search over stored notes and returns
// them as memory entries.
func (m *MemoryService) Search(ctx context.Context, req *adkmemory.SearchRequest) (*adkmemory.SearchResponse, error) {
	if m.svc.embedder == nil {
		return &adkmemory.SearchResponse{Memories: []adkmemory.Entry{}}, nil
	}

	notes, err := m.svc.SearchNotes(ctx, req.Query, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}

	memories := make([]adkmemory.Entry, 0, len(notes))
	for _, note := range notes {
		content := note.Summary
		if len(note.KeyPoints) > 0 {
			content += "\n" + strings.Join(note.KeyPoints, "\n")
		}
		if content == "" {
			continue
		}

		contentParts := genai.Text(content)
		if len(contentParts) == 0 {
			continue
		}
		memories = append(memories, adkmemory.Entry{
			Content:   contentParts[0],
			Author:    "coach",
			Timestamp: note.Timestamp,
		})
	}

	return &adkmemory.SearchResponse{Memories: memories}, nil
}

// extractText pulls the text parts out of a content block.
func extractText(content *genai.Content) []string {
	var texts []string
	for _, part := range content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return texts
}
