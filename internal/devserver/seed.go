package devserver

import (
	"fmt"
	"time"

	"leadboard/internal/model"
)

// Seed loads a demo workspace with four boards.
func (s *State) Seed() (model.Workspace, error) {
	return s.seed("Clinic")
}

func (s *State) seed(name string) (model.Workspace, error) {
	ws, err := s.CreateWorkspace(model.CreateWorkspaceRequest{Name: name})
	if err != nil {
		return model.Workspace{}, fmt.Errorf("seed workspace: %w", err)
	}
	boards := []struct {
		name  string
		leads [][3]string
	}{
		{"New", [][3]string{
			{"Anna Petrova", "+7 901 555 0101", "Migraine"},
			{"Ivan Sokolov", "+7 901 555 0102", "Back pain"},
			{"Maria Lebedeva", "+7 901 555 0103", "Allergy"},
			{"Oleg Kim", "+7 901 555 0104", "Insomnia"},
		}},
		{"Contacted", [][3]string{
			{"Sergey Volkov", "+7 901 555 0201", "Hypertension"},
			{"Elena Morozova", "+7 901 555 0202", "Asthma"},
		}},
		{"Appointment", [][3]string{
			{"Dmitry Orlov", "+7 901 555 0301", "Knee injury"},
		}},
		{"Treated", nil},
	}
	defer func() {
		s.mu.Lock()
		s.now = func() time.Time { return time.Now().UTC() }
		s.mu.Unlock()
	}()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	for _, bs := range boards {
		b, err := s.CreateBoard(model.CreateBoardRequest{Name: bs.name, WorkspaceID: ws.ID})
		if err != nil {
			return model.Workspace{}, fmt.Errorf("seed board %s: %w", bs.name, err)
		}
		for _, l := range bs.leads {
			n++
			at := base.Add(time.Duration(n) * time.Hour)
			s.mu.Lock()
			s.now = func() time.Time { return at }
			s.mu.Unlock()
			if _, err := s.CreateLead(model.CreateLeadRequest{
				Name:    l[0],
				Phone:   l[1],
				Disease: l[2],
				Note:    "**Referral:** website form\n\n- first visit pending\n- prefers mornings",
				BoardID: b.ID,
			}); err != nil {
				return model.Workspace{}, fmt.Errorf("seed lead %s: %w", l[0], err)
			}
		}
	}
	return s.GetWorkspace(ws.ID)
}
