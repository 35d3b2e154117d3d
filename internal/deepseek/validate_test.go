package deepseek

import (
	"encoding/json"
	"testing"
)

func TestValidResponse(t *testing.T) {
	tests := []struct {
		name string
		json string
		want bool
	}{
		{"well formed", `{"stages": [{"age": 5, "title": "School", "content": "first day at school went sideways"}]}`, true},
		{"empty stages", `{"stages": []}`, true},
		{"top level array", `[{"age": 5}]`, false},
		{"missing stages", `{"chapters": []}`, false},
		{"stage not object", `{"stages": [42]}`, false},
		{"age missing", `{"stages": [{"title": "School", "content": "first day at school went sideways"}]}`, false},
		{"title missing", `{"stages": [{"age": 5, "content": "first day at school went sideways"}]}`, false},
		{"content exactly at limit", `{"stages": [{"age": 5, "title": "School", "content": "12345678901234567890"}]}`, false},
		{"content just over limit", `{"stages": [{"age": 5, "title": "School", "content": "123456789012345678901"}]}`, true},
		{"multibyte content at limit", `{"stages": [{"age": 5, "title": "School", "content": "少年初次入学便遇到了不小的波折与转机啊啊"}]}`, false},
		{"multibyte content over limit", `{"stages": [{"age": 5, "title": "School", "content": "少年初次入学便遇到了不小的波折与转机变化啊"}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v any
			if err := json.Unmarshal([]byte(tt.json), &v); err != nil {
				t.Fatalf("bad test input: %v", err)
			}
			if got := validResponse(v); got != tt.want {
				t.Errorf("validResponse() = %v, want %v", got, tt.want)
			}
		})
	}
}
