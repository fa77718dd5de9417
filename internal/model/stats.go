package model

// DashboardStats aggregates a lawyer's pipeline.
type DashboardStats struct {
	TotalLeads      int64   `json:"total_leads"`
	NewLeads        int64   `json:"leads_novos"`
	InProgressLeads int64   `json:"leads_em_andamento"`
	ClosedLeads     int64   `json:"leads_fechados"`
	ConversionRate  float64 `json:"taxa_conversao"`
	OpenTasks       int64   `json:"tarefas_abertas"`
	UnreadMessages  int64   `json:"mensagens_nao_lidas"`
}

// ComputeConversionRate fills ConversionRate as a percentage of closed leads.
func (s *DashboardStats) ComputeConversionRate() {
	if s.TotalLeads == 0 {
		s.ConversionRate = 0
		return
	}
	s.ConversionRate = float64(s.ClosedLeads) / float64(s.TotalLeads) * 100
}
