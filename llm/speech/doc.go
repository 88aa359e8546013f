// Copyright (c) Erflog Authors.
// Licensed under the MIT License.

/*
包 speech 提供面试语音通道使用的语音识别 (STT) 与语音合成 (TTS) 接入层。

# 概述

通道上传输的音频固定为 16 kHz、16-bit、单声道、小端 PCM。本包的
Provider 都以这一格式为输入输出，屏蔽各服务商在编码参数、鉴权与
响应结构上的差异。

# 核心接口

  - STTProvider：Transcribe 将一段 PCM 转写为文本。
  - TTSProvider：Synthesize 将文本合成为 PCM。
  - STTRequest / STTResponse、TTSRequest / TTSResponse：标准化请求与响应。

# 服务商

  - Deepgram：直接上传原始 linear16，查询参数声明采样率与声道。
  - Whisper：PCM 包装为 WAV 后以 multipart 上传。
  - ElevenLabs：output_format=pcm_16000，直接得到目标格式。
  - OpenAI TTS：response_format=pcm 返回 24 kHz，重采样到 16 kHz。

NewSTT / NewTTS 根据 config.SpeechConfig 选择实现。
*/
package speech
