package sms

import (
	"errors"
	"fmt"
	"strings"

	"sms-service/internal/constants"
)

// 每段可容纳的字符数，与运营商计费口径一致
const (
	SegmentSizeGSM7 = 160
	SegmentSizeUCS2 = 70
)

// ErrEmptyMessage 消息内容为空或全为空白
var ErrEmptyMessage = errors.New("message text is empty")

// ErrMessageTooLong 消息超过平台分段数上限
var ErrMessageTooLong = errors.New("message exceeds segment limit")

// PreparedMessage 校验后的消息
type PreparedMessage struct {
	Text     string // 去除首尾空白后的文本
	Length   int    // 字符数（按 rune 计）
	Encoding string // gsm7 或 ucs2
	Segments int64  // 分段数，即计费单元数
}

// PrepareMessage 校验消息文本并计算分段数
// 任一字符超出 7-bit ASCII 范围则按 UCS-2 编码（每段 70 字符），否则按 GSM-7（每段 160 字符）。
// 分段数即计费单元数：按段计费，不按条计费。
// 超过 MaxSegmentsPerMessage 的消息在触达任何配额逻辑前被拒绝（平台发送策略）。
func PrepareMessage(raw string) (*PreparedMessage, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	runes := []rune(text)
	length := len(runes)

	encoding := constants.EncodingGSM7
	perSegment := SegmentSizeGSM7
	for _, r := range runes {
		if r > 0x7F {
			encoding = constants.EncodingUCS2
			perSegment = SegmentSizeUCS2
			break
		}
	}

	segments := int64((length + perSegment - 1) / perSegment)
	if segments > constants.MaxSegmentsPerMessage {
		return nil, fmt.Errorf("%w: %d segments, platform limit is %d", ErrMessageTooLong, segments, constants.MaxSegmentsPerMessage)
	}

	return &PreparedMessage{
		Text:     text,
		Length:   length,
		Encoding: encoding,
		Segments: segments,
	}, nil
}
