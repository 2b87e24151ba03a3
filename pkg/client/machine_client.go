package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"labbook/pkg/model"
)

type MachineClient struct {
	httpClient *HttpClient
}

func NewMachineClient(baseURL string) *MachineClient {
	return &MachineClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *MachineClient) Create(body any, actor model.Actor) (*Response, error) {
	return c.httpClient.POST("/api/v1/machines", body, actorHeaders(actor))
}

func (c *MachineClient) GetAll(limit int, offset int64, actor model.Actor) (*Response, error) {
	path := fmt.Sprintf("/api/v1/machines?limit=%d&offset=%d", limit, offset)
	return c.httpClient.GET(path, actorHeaders(actor))
}

func (c *MachineClient) Search(department, location string, actor model.Actor) (*Response, error) {
	q := url.Values{}
	if department != "" {
		q.Set("department", department)
	}
	if location != "" {
		q.Set("location", location)
	}
	return c.httpClient.GET("/api/v1/machines/search?"+q.Encode(), actorHeaders(actor))
}

func (c *MachineClient) GetByID(id string, actor model.Actor) (*Response, error) {
	return c.httpClient.GET("/api/v1/machines/id/"+url.PathEscape(id), actorHeaders(actor))
}

func (c *MachineClient) Update(id string, body any, actor model.Actor) (*Response, error) {
	return c.httpClient.PATCH("/api/v1/machines/id/"+url.PathEscape(id), body, actorHeaders(actor))
}

// Deactivate retires a machine. The document is kept for referential
// integrity; only is_active flips.
func (c *MachineClient) Deactivate(id string, actor model.Actor) (*Response, error) {
	path := "/api/v1/machines/id/" + url.PathEscape(id) + "/deactivate"
	return c.httpClient.POST(path, struct{}{}, actorHeaders(actor))
}

func (c *MachineClient) DecodeMachine(resp *Response) (*model.Machine, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode machine wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var machine model.Machine
	if err := json.Unmarshal(wrapper.Data, &machine); err != nil {
		return nil, fmt.Errorf("could not decode machine json:\n%+v\n%s", resp.ToString(), err)
	}

	return &machine, nil
}

func (c *MachineClient) DecodeMachines(resp *Response) ([]*model.Machine, *Metadata, error) {
	var wrapper struct {
		Data       json.RawMessage `json:"data"`
		TotalCount int64           `json:"total_count"`
		Limit      int             `json:"limit"`
		Offset     int64           `json:"offset"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp:\n%+v\n%s", resp.ToString(), err)
	}

	var machines []*model.Machine
	if err := json.Unmarshal(wrapper.Data, &machines); err != nil {
		return nil, nil, fmt.Errorf("could not decode machine list:\n%+v\n%s", resp.ToString(), err)
	}

	return machines, &Metadata{
		TotalCount: wrapper.TotalCount,
		Limit:      wrapper.Limit,
		Offset:     wrapper.Offset,
	}, nil
}
