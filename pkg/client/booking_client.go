package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"labbook/pkg/model"
)

// BookingClient drives the bookings service over HTTP. Actor identity
// travels in the X-Actor-ID / X-Actor-Role headers on every call.
type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func actorHeaders(actor model.Actor) map[string]string {
	return map[string]string{
		"X-Actor-ID":   actor.ID,
		"X-Actor-Role": actor.Role,
	}
}

func (c *BookingClient) Create(body any, actor model.Actor) (*Response, error) {
	return c.httpClient.POST("/api/v1/bookings", body, actorHeaders(actor))
}

func (c *BookingClient) GetAll(limit int, offset int64, actor model.Actor) (*Response, error) {
	path := fmt.Sprintf("/api/v1/bookings?limit=%d&offset=%d", limit, offset)
	return c.httpClient.GET(path, actorHeaders(actor))
}

func (c *BookingClient) GetByID(id string, actor model.Actor) (*Response, error) {
	return c.httpClient.GET("/api/v1/bookings/id/"+url.PathEscape(id), actorHeaders(actor))
}

func (c *BookingClient) GetMine(actor model.Actor) (*Response, error) {
	return c.httpClient.GET("/api/v1/bookings/mine", actorHeaders(actor))
}

func (c *BookingClient) GetPending(actor model.Actor) (*Response, error) {
	return c.httpClient.GET("/api/v1/bookings/pending", actorHeaders(actor))
}

func (c *BookingClient) Search(machineID, date string, actor model.Actor) (*Response, error) {
	q := url.Values{}
	q.Set("machine_id", machineID)
	q.Set("date", date)
	return c.httpClient.GET("/api/v1/bookings/search?"+q.Encode(), actorHeaders(actor))
}

func (c *BookingClient) Approve(id string, actor model.Actor) (*Response, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id) + "/approve"
	return c.httpClient.POST(path, struct{}{}, actorHeaders(actor))
}

func (c *BookingClient) Reject(id string, reason string, actor model.Actor) (*Response, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id) + "/reject"
	return c.httpClient.POST(path, map[string]string{"reason": reason}, actorHeaders(actor))
}

func (c *BookingClient) Cancel(id string, actor model.Actor) (*Response, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id) + "/cancel"
	return c.httpClient.POST(path, struct{}{}, actorHeaders(actor))
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode booking wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var booking model.Booking
	if err := json.Unmarshal(wrapper.Data, &booking); err != nil {
		return nil, fmt.Errorf("could not decode booking json:\n%+v\n%s", resp.ToString(), err)
	}

	return &booking, nil
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]*model.Booking, *Metadata, error) {
	var wrapper struct {
		Data       json.RawMessage `json:"data"`
		TotalCount int64           `json:"total_count"`
		Limit      int             `json:"limit"`
		Offset     int64           `json:"offset"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp:\n%+v\n%s", resp.ToString(), err)
	}

	var bookings []*model.Booking
	if err := json.Unmarshal(wrapper.Data, &bookings); err != nil {
		return nil, nil, fmt.Errorf("could not decode booking list:\n%+v\n%s", resp.ToString(), err)
	}

	return bookings, &Metadata{
		TotalCount: wrapper.TotalCount,
		Limit:      wrapper.Limit,
		Offset:     wrapper.Offset,
	}, nil
}
