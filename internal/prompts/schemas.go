package prompts

import "github.com/google/generative-ai-go/genai"

// PreConsultAdminSchema constrains the live admin agent's reply. action_type
// is the state decision; unused fields come back null and are stripped by the
// intake normalizer before persisting.
func PreConsultAdminSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"action_type": {
				Type:        genai.TypeString,
				Enum:        []string{"TEXT_ONLY", "SEND_FORM", "OFFER_SLOTS"},
				Description: "Next intake state decided from the conversation history.",
			},
			"message": {
				Type:        genai.TypeString,
				Description: "Text shown to the patient.",
			},
			"slots": {
				Type:     genai.TypeArray,
				Nullable: true,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"slotId": {Type: genai.TypeString},
						"date":   {Type: genai.TypeString},
						"time":   {Type: genai.TypeString},
						"type":   {Type: genai.TypeString},
					},
					Required: []string{"slotId", "date", "time", "type"},
				},
				Description: "Offered slots, copied verbatim from the provided availability. Only set when action_type is OFFER_SLOTS.",
			},
			"requested_documents": {
				Type:        genai.TypeArray,
				Nullable:    true,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Documents the admin is asking the patient to upload.",
			},
		},
		Required: []string{"action_type", "message"},
	}
}

// BasicInfoSchema is the demographic/administrative extraction shape.
func BasicInfoSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":               {Type: genai.TypeString},
			"date_of_birth":      {Type: genai.TypeString, Description: "ISO 8601 date"},
			"gender":             {Type: genai.TypeString},
			"national_id":        {Type: genai.TypeString},
			"phone":              {Type: genai.TypeString},
			"email":              {Type: genai.TypeString},
			"address":            {Type: genai.TypeString},
			"insurance_provider": {Type: genai.TypeString},
			"insurance_number":   {Type: genai.TypeString},
		},
		Required: []string{"name", "date_of_birth", "gender"},
	}
}

// EncountersSchema is the structured encounter timeline: an array of
// patient+encounter pairs, oldest first.
func EncountersSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"patient": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":          {Type: genai.TypeString},
						"date_of_birth": {Type: genai.TypeString},
					},
					Required: []string{"name"},
				},
				"encounter": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"meta": {
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"date_time": {Type: genai.TypeString, Description: "ISO 8601 date-time"},
								"location":  {Type: genai.TypeString},
								"provider":  {Type: genai.TypeString},
							},
							Required: []string{"date_time"},
						},
						"chief_complaint": {Type: genai.TypeString},
						"subjective":      {Type: genai.TypeString},
						"objective":       {Type: genai.TypeString},
						"assessment": {
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"impression": {Type: genai.TypeString},
							},
							Required: []string{"impression"},
						},
						"plan": {
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"medications": {
									Type:  genai.TypeArray,
									Items: &genai.Schema{Type: genai.TypeString},
								},
								"investigations": {
									Type: genai.TypeObject,
									Properties: map[string]*genai.Schema{
										"labs": {
											Type:  genai.TypeArray,
											Items: &genai.Schema{Type: genai.TypeString},
										},
										"imaging": {
											Type:  genai.TypeArray,
											Items: &genai.Schema{Type: genai.TypeString},
										},
									},
								},
								"follow_up": {Type: genai.TypeString},
							},
						},
					},
					Required: []string{"meta", "chief_complaint", "assessment"},
				},
			},
			Required: []string{"encounter"},
		},
	}
}

// LabsSchema is the per-biomarker time series shape.
func LabsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"biomarker": {Type: genai.TypeString},
				"unit":      {Type: genai.TypeString},
				"referenceRange": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"min": {Type: genai.TypeNumber},
						"max": {Type: genai.TypeNumber},
					},
					Required: []string{"min", "max"},
				},
				"values": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"t":     {Type: genai.TypeString, Description: "ISO 8601 date-time of the draw"},
							"value": {Type: genai.TypeNumber},
						},
						Required: []string{"t", "value"},
					},
				},
			},
			Required: []string{"biomarker", "unit", "referenceRange", "values"},
		},
	}
}

// ChatTranscriptSchema is the seeded pre-consultation transcript shape.
func ChatTranscriptSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"conversation": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"sender":  {Type: genai.TypeString, Enum: []string{"patient", "admin"}},
						"message": {Type: genai.TypeString},
						"attachments": {
							Type:     genai.TypeArray,
							Nullable: true,
							Items:    &genai.Schema{Type: genai.TypeString},
						},
					},
					Required: []string{"sender", "message"},
				},
			},
		},
		Required: []string{"conversation"},
	}
}

// ImageParserSchema is the attachment OCR result shape.
func ImageParserSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"document_type": {
				Type: genai.TypeString,
				Enum: []string{"referral_letter", "lab_report", "imaging_report", "encounter_summary", "other"},
			},
			"extracted_text": {Type: genai.TypeString},
		},
		Required: []string{"document_type", "extracted_text"},
	}
}

// ReferralParserSchema is the referral-board extraction shape.
func ReferralParserSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"date":        {Type: genai.TypeString},
			"visit_type":  {Type: genai.TypeString},
			"provider":    {Type: genai.TypeString},
			"study_type":  {Type: genai.TypeString},
			"specialty":   {Type: genai.TypeString},
			"data_source": {Type: genai.TypeString},
			"highlights": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"date", "specialty"},
	}
}
