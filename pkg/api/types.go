package api

// PageResponse carries a fetched page body.
type PageResponse struct {
	Content string `json:"content"`
}

// MessageRequest queues one outbound message.
type MessageRequest struct {
	DestinationHash string `json:"destination_hash"`
	Content         string `json:"content"`
	Title           string `json:"title,omitempty"`
}

// StatusResponse summarizes the running service.
type StatusResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	NodesCount  int    `json:"nodes_count"`
	ActiveLinks int    `json:"active_links"`
}
