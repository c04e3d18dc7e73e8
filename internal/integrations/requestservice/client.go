package requestservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger интерфейс логирования
type Logger interface {
	Info(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент для работы с RequestService
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента RequestService
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetServiceRequest получает заявку на услугу по ID
func (c *Client) GetServiceRequest(ctx context.Context, requestID int64) (*ServiceRequest, error) {
	url := fmt.Sprintf("%s/internal/requests/%d", c.baseURL, requestID)

	var request ServiceRequest
	if err := c.getJSON(ctx, url, &request, ErrRequestNotFound); err != nil {
		return nil, err
	}

	return &request, nil
}

// GetAcceptedProposal получает принятое предложение по заявке
// Именно оно связывает заявку с исполнителем и согласованной ценой
func (c *Client) GetAcceptedProposal(ctx context.Context, requestID int64) (*Proposal, error) {
	url := fmt.Sprintf("%s/internal/requests/%d/proposals/accepted", c.baseURL, requestID)

	var proposal Proposal
	if err := c.getJSON(ctx, url, &proposal, ErrProposalNotFound); err != nil {
		return nil, err
	}

	return &proposal, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}, notFoundErr error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusBadRequest:
		return fmt.Errorf("%w: invalid request ID format", ErrInvalidResponse)
	case http.StatusNotFound:
		return notFoundErr
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	// Парсим ответ
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return nil
}
