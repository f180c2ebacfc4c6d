package mail

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	// AgentRecipients receive the new-lead notification.
	AgentRecipients []string

	dialer dialer
}

type AgentEmailData struct {
	LeadID        string
	Name          string
	Email         string
	Phone         string
	InsuranceType string
	Details       []DetailLine
	Attribution   []DetailLine
	CRMURL        string
}

type ConsumerEmailData struct {
	FirstName     string
	InsuranceType string
	Details       []DetailLine
}

type DetailLine struct {
	Label string
	Value string
}
