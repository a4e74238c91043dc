//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseURL = getEnv("AUTHSYS_API_URL", "http://127.0.0.1:8080")
	apiBase = baseURL + "/api/v1"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// TestClient is an HTTP client carrying a bearer token between calls.
type TestClient struct {
	httpClient  *http.Client
	accessToken string
}

func NewTestClient() *TestClient {
	return &TestClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TestClient) Do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	return c.httpClient.Do(req)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// Login authenticates and stores the access token for later calls.
func (c *TestClient) Login(t *testing.T, email, password string) map[string]any {
	t.Helper()
	resp, err := c.Do("POST", apiBase+"/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	c.accessToken = body["access_token"].(string)
	require.NotEmpty(t, c.accessToken)
	return body
}

func TestE2E_Workflows(t *testing.T) {
	adminEmail := "admin@authsys.local"
	adminPassword := "password123"

	// State shared between subtests
	var (
		userEmail    string
		userPassword string
		userID       string
		roleID       string
		permissionID string
	)

	// 1. Admin Bootstrap Flow
	admin := NewTestClient()
	t.Run("Admin Bootstrap Flow", func(t *testing.T) {
		// Seed the catalog, the Default/Admin roles and the superuser
		// by running the bootstrap subcommand on the test container
		// (standard compose naming: docker-authsys_test-1).
		cmd := exec.Command("docker", "exec", "docker-authsys_test-1", "./server", "bootstrap")
		cmd.Env = append(os.Environ(),
			"BOOTSTRAP_ADMIN_EMAIL="+adminEmail,
			"BOOTSTRAP_ADMIN_PASSWORD="+adminPassword,
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "bootstrap command failed: %s", string(out))
		t.Logf("Bootstrap output: %s", string(out))

		admin.Login(t, adminEmail, adminPassword)

		// The seeded Admin role grants the rbac catalog endpoints
		resp, err := admin.Do("GET", apiBase+"/rbac/permissions", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})

	// 2. User Registration Flow
	user := NewTestClient()
	t.Run("User Registration Flow", func(t *testing.T) {
		userEmail = fmt.Sprintf("user-%d@example.com", time.Now().Unix())
		userPassword = "password123"

		resp, err := user.Do("POST", apiBase+"/auth/register", map[string]string{
			"email":    userEmail,
			"password": userPassword,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decode(t, resp)
		userID = body["user_id"].(string)
		require.NotEmpty(t, userID)

		user.Login(t, userEmail, userPassword)

		// Fresh users hold the Default role and no permissions
		resp, err = user.Do("GET", apiBase+"/me/permissions", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		perms := decode(t, resp)["permissions"].([]any)
		assert.Empty(t, perms)

		// Admin endpoints are denied
		resp, err = user.Do("GET", apiBase+"/rbac/roles", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp.Body.Close()
	})

	// 3. Grant Flow
	t.Run("Grant Flow", func(t *testing.T) {
		suffix := time.Now().Unix()

		resp, err := admin.Do("POST", apiBase+"/rbac/resources", map[string]string{
			"code":        fmt.Sprintf("reports%d", suffix),
			"description": "Generated reports",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resource := decode(t, resp)["code"].(string)

		resp, err = admin.Do("POST", apiBase+"/rbac/permissions", map[string]string{
			"resource": resource,
			"action":   "read",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		permBody := decode(t, resp)
		permissionID = permBody["permission_id"].(string)
		assert.Equal(t, resource+":read", permBody["code"])

		resp, err = admin.Do("POST", apiBase+"/rbac/roles", map[string]string{
			"name":        fmt.Sprintf("Analyst-%d", suffix),
			"description": "Read-only reporting",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		roleID = decode(t, resp)["role_id"].(string)

		resp, err = admin.Do("POST", apiBase+"/rbac/roles/"+roleID+"/permissions", map[string]string{
			"permission_id": permissionID,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp, err = admin.Do("POST", apiBase+"/users/"+userID+"/roles", map[string]string{
			"role_id": roleID,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		// The user's next request reflects the grant
		resp, err = user.Do("GET", apiBase+"/me/permissions", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		perms := decode(t, resp)["permissions"].([]any)
		assert.Contains(t, perms, resource+":read")
	})

	// 4. Revoke Flow
	t.Run("Revoke Flow", func(t *testing.T) {
		require.NotEmpty(t, roleID, "grant flow must run first")

		resp, err := admin.Do("DELETE", apiBase+"/users/"+userID+"/roles/"+roleID, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp, err = user.Do("GET", apiBase+"/me/permissions", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		perms := decode(t, resp)["permissions"].([]any)
		assert.Empty(t, perms)
	})

	// 5. Token Lifecycle Flow
	t.Run("Token Lifecycle Flow", func(t *testing.T) {
		client := NewTestClient()
		body := client.Login(t, userEmail, userPassword)
		refresh := body["refresh_token"].(string)
		require.NotEmpty(t, refresh)

		resp, err := client.Do("POST", apiBase+"/auth/refresh", map[string]string{
			"refresh_token": refresh,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		rotated := decode(t, resp)
		assert.NotEqual(t, refresh, rotated["refresh_token"])

		// The spent refresh token is single-use
		resp, err = client.Do("POST", apiBase+"/auth/refresh", map[string]string{
			"refresh_token": refresh,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()

		newRefresh := rotated["refresh_token"].(string)
		resp, err = client.Do("POST", apiBase+"/auth/logout", map[string]string{
			"refresh_token": newRefresh,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp, err = client.Do("POST", apiBase+"/auth/refresh", map[string]string{
			"refresh_token": newRefresh,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	// 6. Account Lifecycle Flow
	t.Run("Account Lifecycle Flow", func(t *testing.T) {
		resp, err := admin.Do("DELETE", apiBase+"/users/"+userID, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		// Deactivated accounts cannot log in
		login := NewTestClient()
		resp, err = login.Do("POST", apiBase+"/auth/login", map[string]string{
			"email":    userEmail,
			"password": userPassword,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()

		resp, err = admin.Do("POST", apiBase+"/users/"+userID+"/restore", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		login.Login(t, userEmail, userPassword)
	})
}
