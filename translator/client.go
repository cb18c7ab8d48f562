package translator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/resonance-relay/sniffer/logging"
)

// baseURL is a var, not a const, so tests can point it at an httptest
// server instead of the real inference child's fixed local port.
var baseURL = "http://127.0.0.1:8080"

// httpDoer is the subset of *retryablehttp.Client translateText depends on,
// so tests can substitute a fake transport without spawning a real child.
type httpDoer interface {
	Do(req *retryablehttp.Request) (*http.Response, error)
}

const systemPrompt = `당신은 '블루 프로토콜: 스타 레조넌스' 일본 서버 전문 번역 엔진입니다.
사용자가 입력하는 일본어 채팅 로그를 다음 규칙에 따라 한국어 구어체로 번역하십시오.

1. 출력 형식: 번역 결과만 출력하십시오. 설명, 인사, 따옴표 등 부가적인 텍스트는 절대 포함하지 마십시오.
2. 로컬라이징 용어: 한국 유저들의 실제 게임 용어를 엄격히 사용하십시오.
3. 약어 유지: 클래스/역할 및 콘텐츠 약어는 번역하지 않고 그대로 둡니다.
4. 번역 스타일: 문어체가 아닌 자연스러운 한국어 구어체를 사용하고, 원문에 없는 주어/목적어를 임의로 추측하여 추가하지 마십시오.`

// connectionErrorSentinel is what a Chat event's Translated field is set to
// when the inference child can't be reached or answers with an error status.
const connectionErrorSentinel = "[AI Server Connection Error]"

// newHTTPClient builds a retryablehttp client logging through log via the
// leveledLogger adapter below.
func newHTTPClient(log logging.L) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryWaitMin = 100 * time.Millisecond
	c.RetryWaitMax = time.Second
	c.RetryMax = 2
	c.Logger = leveledLogger{log: log}
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

// leveledLogger adapts logging.L to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log logging.L
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Errorf(msg+"\n", kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debugf(msg+"\n", kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debugf(msg+"\n", kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warnf(msg+"\n", kv...) }

type chatCompletionRequest struct {
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sseChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// translateText sends maskedText as the user turn of a chat completion
// request and concatenates the streamed delta content. ok is false when the
// child couldn't be reached or returned an error status, in which case the
// worker substitutes the fixed connection-error sentinel rather than
// blocking chat emission on a translation failure.
func translateText(ctx context.Context, client httpDoer, maskedText string) (text string, ok bool) {
	body, err := json.Marshal(chatCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: maskedText},
		},
		Stream:      true,
		Temperature: 0.1,
	})
	if err != nil {
		return "", false
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false
	}

	var out strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if strings.TrimSpace(payload) == "[DONE]" {
			break
		}

		var chunk sseChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 {
			out.WriteString(chunk.Choices[0].Delta.Content)
		}
	}

	return strings.TrimSpace(out.String()), true
}
