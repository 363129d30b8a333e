// Package token 对短字符串做HMAC签名，用于不需要服务端查询就能识别伪造值的场景
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// ErrMalformed 表示令牌格式或签名不正确
var ErrMalformed = errors.New("令牌格式错误或签名不匹配")

// Signer 持有签名密钥
type Signer struct {
	key []byte
}

// NewSigner 使用给定密钥创建签名器
func NewSigner(key []byte) *Signer {
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}
}

func (s *Signer) mac(payload string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// Sign 返回 "payload.signature" 形式的令牌，签名使用URL安全的Base64编码
func (s *Signer) Sign(payload string) string {
	return payload + "." + base64.RawURLEncoding.EncodeToString(s.mac(payload))
}

// Verify 校验令牌并返回其中的payload
func (s *Signer) Verify(signed string) (string, error) {
	idx := strings.LastIndexByte(signed, '.')
	if idx <= 0 {
		return "", ErrMalformed
	}
	payload, sigB64 := signed[:idx], signed[idx+1:]

	actual, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return "", ErrMalformed
	}
	// hmac.Equal 是时间恒定的比较
	if !hmac.Equal(s.mac(payload), actual) {
		return "", ErrMalformed
	}
	return payload, nil
}
