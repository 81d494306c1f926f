// ABOUTME: Dashboard aggregates over the repository
// ABOUTME: Counts leads by stage, source and funnel
package crm

import "github.com/harperreed/leadpipe/models"

type Stats struct {
	TotalLeads     int            `json:"totalLeads"`
	TotalFunnels   int            `json:"totalFunnels"`
	TotalStages    int            `json:"totalStages"`
	TotalMessages  int            `json:"totalMessages"`
	ConnectedUsers int            `json:"connectedUsers"`
	ByStage        map[string]int `json:"byStage"`
	BySource       map[string]int `json:"bySource"`
	ByFunnel       map[string]int `json:"byFunnel"`
}

// Stats computes dashboard counts. A lead's stage is resolved within its own
// funnel; leads with dangling stage or funnel ids are left out of those groups.
func (r *Repository) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		TotalLeads:    len(r.leads),
		TotalFunnels:  len(r.funnels),
		TotalMessages: len(r.messages),
		ByStage:       make(map[string]int),
		BySource: map[string]int{
			models.SourceManual:  0,
			models.SourceImport:  0,
			models.SourceWebhook: 0,
		},
		ByFunnel: make(map[string]int),
	}

	funnels := make(map[string]*models.Funnel, len(r.funnels))
	for i := range r.funnels {
		f := &r.funnels[i]
		funnels[f.ID] = f
		s.TotalStages += len(f.Stages)
	}

	for _, l := range r.leads {
		s.BySource[l.Source]++
		f, ok := funnels[l.FunnelID]
		if !ok {
			continue
		}
		s.ByFunnel[f.Name]++
		if st := f.Stage(l.Stage); st != nil {
			s.ByStage[st.Name]++
		}
	}

	for _, u := range r.users {
		if u.WhatsappConnected {
			s.ConnectedUsers++
		}
	}
	return s
}
