package kommo

type Config struct {
	Subdomain  string
	Token      string
	PipelineID int
	StatusID   int
	// BaseURL overrides https://<subdomain>.kommo.com, used by tests.
	BaseURL string
}

type tag struct {
	Name string `json:"name"`
}

type fieldValue struct {
	Value    string `json:"value"`
	EnumCode string `json:"enum_code,omitempty"`
}

type customField struct {
	FieldCode string       `json:"field_code"`
	Values    []fieldValue `json:"values"`
}

type contactRequest struct {
	Name         string        `json:"name"`
	FirstName    string        `json:"first_name,omitempty"`
	LastName     string        `json:"last_name,omitempty"`
	CustomFields []customField `json:"custom_fields_values,omitempty"`
}

type entityRef struct {
	ID int `json:"id"`
}

type leadEmbedded struct {
	Tags     []tag       `json:"tags,omitempty"`
	Contacts []entityRef `json:"contacts,omitempty"`
}

type leadRequest struct {
	Name       string       `json:"name"`
	PipelineID int          `json:"pipeline_id,omitempty"`
	StatusID   int          `json:"status_id,omitempty"`
	Embedded   leadEmbedded `json:"_embedded"`
}

type embeddedResponse struct {
	Embedded struct {
		Leads    []entityRef `json:"leads"`
		Contacts []entityRef `json:"contacts"`
	} `json:"_embedded"`
}
