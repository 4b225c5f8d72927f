package model

// PageRequest describes one page fetch from a remote node. FieldData carries
// optional form values submitted with the request.
type PageRequest struct {
	DestinationHash string            `json:"destination_hash"`
	PagePath        string            `json:"page_path"`
	FieldData       map[string]string `json:"field_data,omitempty"`
}
