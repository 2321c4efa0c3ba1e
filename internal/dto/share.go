package dto

import "encoding/json"

// ShareRequest describes one public link to create for a remote file.
type ShareRequest struct {
	Path          string
	Username      string
	Password      string
	SharePassword string
	Label         string
}

// ShareResult is the part of a created share the tool cares about.
type ShareResult struct {
	Token string
	URL   string
}

// OCSResponse is the envelope every OCS endpoint wraps its payload in.
// Data is kept raw because failed calls send an empty array instead of an object.
type OCSResponse struct {
	OCS struct {
		Meta OCSMeta         `json:"meta"`
		Data json.RawMessage `json:"data"`
	} `json:"ocs"`
}

type OCSMeta struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statuscode"`
	Message    string `json:"message"`
}

type OCSShare struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}
