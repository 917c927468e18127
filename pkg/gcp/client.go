// Package gcp wraps the Google Cloud APIs the reconciler depends on:
// project discovery (Cloud Resource Manager), service enablement
// (Service Usage) and API key CRUD (API Keys). Every call is paced by a
// per-client rate limiter and every failure is classified into a Kind the
// reconciler can report without retrying.
package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	apikeys "google.golang.org/api/apikeys/v2"
	cloudresourcemanager "google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/option"
	serviceusage "google.golang.org/api/serviceusage/v1"

	"github.com/nholm/gemkeys/pkg/config"
)

// Project is a cloud project reachable by the authenticated account.
type Project struct {
	ID     string
	Name   string
	Number string
	State  string
}

// Key is an API key as seen by the cloud. KeyString is only populated on
// creation or by an explicit GetKeyString call; listings never include it.
type Key struct {
	ID          string
	Name        string // full resource name, projects/{p}/locations/global/keys/{id}
	DisplayName string
	KeyString   string
	CreateTime  time.Time
}

// Client is the narrow cloud surface the reconciler consumes. All methods
// return errors wrapped in *APIError carrying a classification Kind.
type Client interface {
	ListProjects(ctx context.Context) ([]Project, error)
	IsServiceEnabled(ctx context.Context, projectID string) (bool, error)
	EnableService(ctx context.Context, projectID string) error
	ListKeys(ctx context.Context, projectID string) ([]Key, error)
	GetKeyString(ctx context.Context, keyName string) (string, error)
	CreateKey(ctx context.Context, projectID string) (Key, error)
	DeleteKey(ctx context.Context, keyName string) error
}

// Factory builds a Client for one account's token. The orchestrator calls
// it once per account after token acquisition.
type Factory func(ctx context.Context, token *oauth2.Token) (Client, error)

const (
	// requestsPerSecond paces calls per account; all projects of an
	// account share the same quota bucket.
	requestsPerSecond = 5
	requestBurst      = 5

	operationPollInterval = 2 * time.Second
)

type apiClient struct {
	keys     *apikeys.Service
	usage    *serviceusage.Service
	projects *cloudresourcemanager.Service
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewClient builds the real Client on top of the Google API services,
// authenticated with the given account token.
func NewClient(ctx context.Context, token *oauth2.Token) (Client, error) {
	ts := oauth2.StaticTokenSource(token)

	keys, err := apikeys.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("building api keys service: %w", err)
	}
	usage, err := serviceusage.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("building service usage service: %w", err)
	}
	projects, err := cloudresourcemanager.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("building resource manager service: %w", err)
	}

	return &apiClient{
		keys:     keys,
		usage:    usage,
		projects: projects,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:   slog.Default(),
	}, nil
}

func (c *apiClient) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

func (c *apiClient) ListProjects(ctx context.Context) ([]Project, error) {
	if err := c.wait(ctx); err != nil {
		return nil, wrapErr("list projects", "", err)
	}

	var out []Project
	call := c.projects.Projects.Search()
	err := call.Pages(ctx, func(resp *cloudresourcemanager.SearchProjectsResponse) error {
		for _, p := range resp.Projects {
			out = append(out, Project{
				ID:     p.ProjectId,
				Name:   p.DisplayName,
				Number: strings.TrimPrefix(p.Name, "projects/"),
				State:  p.State,
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("list projects", "", err)
	}
	return out, nil
}

func (c *apiClient) IsServiceEnabled(ctx context.Context, projectID string) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, wrapErr("get service", projectID, err)
	}

	name := servicePath(projectID)
	svc, err := c.usage.Services.Get(name).Context(ctx).Do()
	if err != nil {
		return false, wrapErr("get service", projectID, err)
	}
	return svc.State == "ENABLED", nil
}

func (c *apiClient) EnableService(ctx context.Context, projectID string) error {
	if err := c.wait(ctx); err != nil {
		return wrapErr("enable service", projectID, err)
	}

	name := servicePath(projectID)
	op, err := c.usage.Services.Enable(name, &serviceusage.EnableServiceRequest{}).Context(ctx).Do()
	if err != nil {
		return wrapErr("enable service", projectID, err)
	}

	for !op.Done {
		if err := sleepOrDone(ctx, operationPollInterval); err != nil {
			return wrapErr("enable service", projectID, err)
		}
		op, err = c.usage.Operations.Get(op.Name).Context(ctx).Do()
		if err != nil {
			return wrapErr("enable service", projectID, err)
		}
	}
	if op.Error != nil {
		return wrapErr("enable service", projectID, &operationError{code: op.Error.Code, message: op.Error.Message})
	}
	c.logger.Debug("service enabled", "project", projectID, "service", config.GenerativeLanguageService)
	return nil
}

func (c *apiClient) ListKeys(ctx context.Context, projectID string) ([]Key, error) {
	if err := c.wait(ctx); err != nil {
		return nil, wrapErr("list keys", projectID, err)
	}

	var out []Key
	call := c.keys.Projects.Locations.Keys.List(keysParent(projectID))
	err := call.Pages(ctx, func(resp *apikeys.V2ListKeysResponse) error {
		for _, k := range resp.Keys {
			out = append(out, keyFromAPI(k))
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("list keys", projectID, err)
	}
	return out, nil
}

func (c *apiClient) GetKeyString(ctx context.Context, keyName string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", wrapErr("get key string", "", err)
	}

	resp, err := c.keys.Projects.Locations.Keys.GetKeyString(keyName).Context(ctx).Do()
	if err != nil {
		return "", wrapErr("get key string", "", err)
	}
	return resp.KeyString, nil
}

func (c *apiClient) CreateKey(ctx context.Context, projectID string) (Key, error) {
	if err := c.wait(ctx); err != nil {
		return Key{}, wrapErr("create key", projectID, err)
	}

	// Restriction scope is exactly the generative language service. No
	// broader scope is ever granted.
	req := &apikeys.V2Key{
		DisplayName: config.KeyDisplayName,
		Restrictions: &apikeys.V2Restrictions{
			ApiTargets: []*apikeys.V2ApiTarget{
				{Service: config.GenerativeLanguageService},
			},
		},
	}

	op, err := c.keys.Projects.Locations.Keys.Create(keysParent(projectID), req).Context(ctx).Do()
	if err != nil {
		return Key{}, wrapErr("create key", projectID, err)
	}

	for !op.Done {
		if err := sleepOrDone(ctx, operationPollInterval); err != nil {
			return Key{}, wrapErr("create key", projectID, err)
		}
		op, err = c.keys.Operations.Get(op.Name).Context(ctx).Do()
		if err != nil {
			return Key{}, wrapErr("create key", projectID, err)
		}
	}
	if op.Error != nil {
		return Key{}, wrapErr("create key", projectID, &operationError{code: op.Error.Code, message: op.Error.Message})
	}

	var created apikeys.V2Key
	if err := json.Unmarshal(op.Response, &created); err != nil {
		return Key{}, wrapErr("create key", projectID, fmt.Errorf("decoding operation response: %w", err))
	}
	c.logger.Debug("created key", "project", projectID, "key", created.Uid)
	return keyFromAPI(&created), nil
}

func (c *apiClient) DeleteKey(ctx context.Context, keyName string) error {
	if err := c.wait(ctx); err != nil {
		return wrapErr("delete key", "", err)
	}

	op, err := c.keys.Projects.Locations.Keys.Delete(keyName).Context(ctx).Do()
	if err != nil {
		return wrapErr("delete key", "", err)
	}

	for !op.Done {
		if err := sleepOrDone(ctx, operationPollInterval); err != nil {
			return wrapErr("delete key", "", err)
		}
		op, err = c.keys.Operations.Get(op.Name).Context(ctx).Do()
		if err != nil {
			return wrapErr("delete key", "", err)
		}
	}
	if op.Error != nil {
		return wrapErr("delete key", "", &operationError{code: op.Error.Code, message: op.Error.Message})
	}
	return nil
}

func keysParent(projectID string) string {
	return fmt.Sprintf("projects/%s/locations/global", projectID)
}

func servicePath(projectID string) string {
	return fmt.Sprintf("projects/%s/services/%s", projectID, config.GenerativeLanguageService)
}

func keyFromAPI(k *apikeys.V2Key) Key {
	created, _ := time.Parse(time.RFC3339Nano, k.CreateTime)
	return Key{
		ID:          k.Uid,
		Name:        k.Name,
		DisplayName: k.DisplayName,
		KeyString:   k.KeyString,
		CreateTime:  created,
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ Client = (*apiClient)(nil)
