package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain"
)

// uploadPath is where the service exposes stored image files. An image
// reference is resolved by joining this path with the stored filename.
const uploadPath = "/uploads/"

// TokenFunc supplies the bearer credential attached to mutating requests.
// Credential acquisition and storage live in session state outside the
// catalog core.
type TokenFunc func() string

// Client is the HTTP adapter for the remote catalog service. It is the
// only component that knows the wire contract; the catalog store consumes
// its results and never builds requests itself.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenFunc
}

// New creates a client for the service at baseURL. The underlying HTTP
// client carries no timeout: requests run to completion or failure and
// there is no abort path for in-flight calls.
func New(baseURL string, token TokenFunc) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// ListProducts fetches the full catalog in server order.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/products", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}

	var products []domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode product list: %w", err)
	}
	return products, nil
}

// CreateProduct submits a multipart create request with the title and an
// optional logo file. The returned Product is the service's authoritative
// representation, including the assigned id.
func (c *Client) CreateProduct(ctx context.Context, title string, logo *domain.Upload) (domain.Product, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := form.WriteField("title", title); err != nil {
		return domain.Product{}, fmt.Errorf("encode product form: %w", err)
	}
	if logo != nil {
		if err := writeFilePart(form, "logo", logo); err != nil {
			return domain.Product{}, fmt.Errorf("encode product form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return domain.Product{}, fmt.Errorf("encode product form: %w", err)
	}

	var created domain.Product
	if err := c.postMultipart(ctx, "/api/products", &body, form.FormDataContentType(), &created); err != nil {
		return domain.Product{}, err
	}
	return created, nil
}

// CreateCategory submits a multipart create request scoped under the
// parent product. The response is the updated parent Product with the new
// category appended by the service.
func (c *Client) CreateCategory(ctx context.Context, productID string, draft domain.CategoryDraft, image domain.Upload) (domain.Product, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	fields := map[string]string{
		"title":       draft.Title,
		"description": draft.Description,
		"price":       strconv.FormatFloat(draft.Price, 'f', -1, 64),
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return domain.Product{}, fmt.Errorf("encode category form: %w", err)
		}
	}
	if err := writeFilePart(form, "image", &image); err != nil {
		return domain.Product{}, fmt.Errorf("encode category form: %w", err)
	}
	if err := form.Close(); err != nil {
		return domain.Product{}, fmt.Errorf("encode category form: %w", err)
	}

	var parent domain.Product
	path := "/api/products/" + productID + "/categories"
	if err := c.postMultipart(ctx, path, &body, form.FormDataContentType(), &parent); err != nil {
		return domain.Product{}, err
	}
	return parent, nil
}

// DeleteProduct asks the service to remove a product. No response body is
// required; any 2xx status counts as confirmation.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/products/"+id)
}

// DeleteCategory removes a category from its parent product.
func (c *Client) DeleteCategory(ctx context.Context, productID, categoryID string) error {
	return c.delete(ctx, "/api/products/"+productID+"/categories/"+categoryID)
}

// ImageURL resolves a stored image reference to the URL it is served
// from. The reference itself is just the filename the service kept.
func (c *Client) ImageURL(ref string) string {
	if ref == "" {
		return ""
	}
	return c.baseURL + uploadPath + ref
}

func (c *Client) postMultipart(ctx context.Context, path string, body io.Reader, contentType string, out *domain.Product) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return unexpectedStatus(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode create response: %w", err)
	}
	return nil
}

func (c *Client) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unexpectedStatus(resp)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token == nil {
		return
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

func writeFilePart(form *multipart.Writer, field string, upload *domain.Upload) error {
	part, err := form.CreateFormFile(field, upload.Filename)
	if err != nil {
		return err
	}
	_, err = part.Write(upload.Data)
	return err
}

func unexpectedStatus(resp *http.Response) error {
	return fmt.Errorf("%s %s: unexpected status %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
}
