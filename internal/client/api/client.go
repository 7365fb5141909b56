package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ringsync/ringsync/internal/models"
	"github.com/ringsync/ringsync/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI определяет интерфейс клиента backend-а.
// Потребители (sync engine, replication, координатор) зависят от интерфейса,
// чтобы тесты могли подставить mock вместо реального HTTP.
type ClientAPI interface {
	// Activate обменивает ключ лицензии на device token
	Activate(ctx context.Context, req api.ActivateRequest) (*api.ActivateResponse, error)

	// PullTrials возвращает snapshot таблицы trials для tenant из токена
	PullTrials(ctx context.Context, token string) (*api.TrialsResponse, error)

	// PullClasses возвращает snapshot таблицы classes
	PullClasses(ctx context.Context, token string) (*api.ClassesResponse, error)

	// PullEntries возвращает snapshot таблицы entries
	PullEntries(ctx context.Context, token string) (*api.EntriesResponse, error)

	// SubmitScore доставляет одну мутацию submit_score.
	// Запрос идемпотентен на сервере (per-entity LWW): повторная доставка
	// той же мутации безопасна.
	SubmitScore(ctx context.Context, token, entryID string, req api.ScoreRequest) (*api.ScoreResponse, error)
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Activate обменивает ключ лицензии на device token
func (c *Client) Activate(ctx context.Context, req api.ActivateRequest) (*api.ActivateResponse, error) {
	var resp api.ActivateResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/activate", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("activate request failed: %w", err)
	}
	return &resp, nil
}

// PullTrials возвращает snapshot таблицы trials
func (c *Client) PullTrials(ctx context.Context, token string) (*api.TrialsResponse, error) {
	var resp api.TrialsResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/sync/"+models.TableTrials, token, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("pull trials failed: %w", err)
	}
	return &resp, nil
}

// PullClasses возвращает snapshot таблицы classes
func (c *Client) PullClasses(ctx context.Context, token string) (*api.ClassesResponse, error) {
	var resp api.ClassesResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/sync/"+models.TableClasses, token, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("pull classes failed: %w", err)
	}
	return &resp, nil
}

// PullEntries возвращает snapshot таблицы entries
func (c *Client) PullEntries(ctx context.Context, token string) (*api.EntriesResponse, error) {
	var resp api.EntriesResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/sync/"+models.TableEntries, token, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("pull entries failed: %w", err)
	}
	return &resp, nil
}

// SubmitScore доставляет одну мутацию submit_score
func (c *Client) SubmitScore(ctx context.Context, token, entryID string, req api.ScoreRequest) (*api.ScoreResponse, error) {
	var resp api.ScoreResponse
	path := fmt.Sprintf("/api/v1/entries/%s/score", entryID)
	err := c.doRequest(ctx, http.MethodPatch, path, token, req, &resp)
	if err != nil {
		return nil, fmt.Errorf("submit score failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Сетевая ошибка: транзиентная по определению (IsPermanent == false)
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			statusErr.Message = errResp.Error
		}
		return statusErr
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
