//go:build integration

// Package integration 针对运行中的API服务做端到端测试
//
//	go run ./cmd/api &
//	go test -tags integration ./test/integration/...
//
// LIBRARY_BASE_URL 可以指向其他环境
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Timeout HTTP请求超时时间
const Timeout = 10 * time.Second

// BaseURL API基础URL
var BaseURL = baseURL()

func baseURL() string {
	if u := os.Getenv("LIBRARY_BASE_URL"); u != "" {
		return u + "/api/v1"
	}
	return "http://localhost:8080/api/v1"
}

// Response 统一响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// LoginData 登录响应数据
type LoginData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// BookData 入库响应数据
type BookData struct {
	Book struct {
		ID              uint   `json:"id"`
		ISBN            string `json:"isbn"`
		Title           string `json:"title"`
		TotalCopies     int    `json:"total_copies"`
		AvailableCopies int    `json:"available_copies"`
	} `json:"book"`
	Message string `json:"message"`
}

func do(t *testing.T, method, url string, data interface{}, token string) *Response {
	t.Helper()

	var body io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		require.NoError(t, err, "JSON序列化失败")
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err, "创建HTTP请求失败")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: Timeout}
	resp, err := client.Do(req)
	if err != nil {
		t.Skipf("API服务不可用: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "读取响应体失败")

	var result Response
	require.NoError(t, json.Unmarshal(raw, &result), "解析JSON响应失败: %s", string(raw))
	return &result
}

// PostJSON 发送POST请求并解析统一响应
func PostJSON(t *testing.T, url string, data interface{}, token string) *Response {
	return do(t, http.MethodPost, url, data, token)
}

// GetJSON 发送GET请求并解析统一响应
func GetJSON(t *testing.T, url string, token string) *Response {
	return do(t, http.MethodGet, url, nil, token)
}

// GenerateTestISBN 978 + 10位时间戳尾数
func GenerateTestISBN() string {
	return fmt.Sprintf("978%010d", time.Now().UnixNano()%10000000000)
}

// GeneratePatronID 随机6位读者号, 避免重复运行互相影响
func GeneratePatronID() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

// LoginTestLibrarian 注册并登录馆员, 返回access token
func LoginTestLibrarian(t *testing.T, name string) string {
	t.Helper()
	email := fmt.Sprintf("%s_%d@library.test", name, time.Now().UnixNano())

	resp := PostJSON(t, BaseURL+"/librarians/register", map[string]string{
		"email":    email,
		"password": "Shelves2024",
		"name":     name,
	}, "")
	require.Equal(t, 0, resp.Code, "注册失败: %s", resp.Message)

	resp = PostJSON(t, BaseURL+"/librarians/login", map[string]string{
		"email":    email,
		"password": "Shelves2024",
	}, "")
	require.Equal(t, 0, resp.Code, "登录失败: %s", resp.Message)

	var data LoginData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.AccessToken
}

// AddTestBook 入库测试图书并返回图书ID
func AddTestBook(t *testing.T, token, title string, copies int) uint {
	t.Helper()
	resp := PostJSON(t, BaseURL+"/books", map[string]interface{}{
		"title":        title,
		"author":       "Integration Author",
		"isbn":         GenerateTestISBN(),
		"total_copies": copies,
	}, token)
	require.Equal(t, 0, resp.Code, "入库失败: %s", resp.Message)

	var data BookData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.Book.ID
}
