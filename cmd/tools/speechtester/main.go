package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/z-tavern/portal/internal/config"
	"github.com/zhouzirui/z-tavern/portal/internal/model/speech"
	"github.com/zhouzirui/z-tavern/portal/internal/service/remote"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "", "测试模式: asr 或 tts")
	audioPath := flag.String("audio", "", "ASR 输入音频文件路径")
	contentType := flag.String("type", "", "ASR 上传的音频类型 (默认按扩展名推断, 兜底 audio/webm)")
	text := flag.String("text", "", "TTS 输入文本")
	outputPath := flag.String("out", "", "TTS 输出音频文件路径 (默认自动生成)")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if *mode != "asr" && *mode != "tts" {
		flag.Usage()
		log.Fatal("请通过 -mode=asr 或 -mode=tts 指定测试模式")
	}

	client := remote.NewClient(cfg.Remote)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		runASR(ctx, client, cfg.Remote, *audioPath, *contentType)
	case "tts":
		runTTS(ctx, client, cfg.Remote, *text, *outputPath)
	}
}

func runASR(ctx context.Context, client *remote.Client, cfg config.RemoteConfig, audioPath, contentType string) {
	if audioPath == "" {
		log.Fatal("ASR 模式需要通过 -audio 指定音频文件路径")
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("读取音频文件失败: %v", err)
	}

	if contentType == "" {
		contentType = contentTypeFor(audioPath)
	}

	payload := speech.AudioPayload{
		Data:        data,
		ContentType: contentType,
		Filename:    filepath.Base(audioPath),
	}

	log.Printf("开始进行 ASR 测试: url=%s type=%s size=%d", cfg.TranscribeURL(), contentType, len(data))

	start := time.Now()
	recognized, err := client.Transcribe(ctx, payload)
	if err != nil {
		log.Fatalf("ASR 调用失败: %v", err)
	}

	log.Printf("ASR 识别成功: text=%q elapsed=%s", recognized, time.Since(start).Round(time.Millisecond))
}

func runTTS(ctx context.Context, client *remote.Client, cfg config.RemoteConfig, text, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("TTS 模式需要通过 -text 提供待合成文本")
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.mp3", time.Now().Unix())
	}

	log.Printf("开始进行 TTS 测试: url=%s", cfg.SpeechURL())

	start := time.Now()
	audio, err := client.Synthesize(ctx, text)
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}

	log.Printf("TTS 合成成功: 输出文件 %s, 大小=%d bytes, 耗时=%s", outputPath, len(audio), time.Since(start).Round(time.Millisecond))
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".opus":
		return "audio/ogg"
	default:
		return speech.CaptureContentType
	}
}
