package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoInfo 存储视频信息
type VideoInfo struct {
	Duration float64 `json:"duration"` // 视频时长（秒）
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
	Size     int64   `json:"size"`
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
		Format   string `json:"format_name"`
	} `json:"format"`
}

// GetVideoInfo 使用 ffprobe 获取章节视频的元数据
func GetVideoInfo(videoPath string) (*VideoInfo, error) {
	fileInfo, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("视频文件不存在: %w", err)
	}

	jsonOutput, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return nil, fmt.Errorf("获取视频信息失败: %w", err)
	}

	info, err := ParseProbeOutput(jsonOutput)
	if err != nil {
		return nil, err
	}
	if info.Size == 0 {
		info.Size = fileInfo.Size()
	}
	return info, nil
}

// ParseProbeOutput 解析 ffprobe 的 JSON 输出
func ParseProbeOutput(jsonOutput string) (*VideoInfo, error) {
	var result probeOutput
	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("解析视频信息失败: %w", err)
	}

	info := &VideoInfo{Format: "unknown"}
	for _, stream := range result.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			break
		}
	}

	if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	if s, err := strconv.ParseInt(result.Format.Size, 10, 64); err == nil {
		info.Size = s
	}
	if result.Format.Format != "" {
		info.Format = strings.Split(result.Format.Format, ",")[0]
	}

	return info, nil
}
