// Package main provides localization for the dualcam CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output":                  "出力先",
		"Layout and Style":        "レイアウトとスタイル",
		"Synchronization":         "同期",
		"Quality and Concurrency": "品質と並列度",
		"Source":                  "入力ソース",
		"Debug and Metrics":       "デバッグとメトリクス",
		"Logging":                 "ログ",

		// Root command
		"Compose two camera streams into one output stream": "2つのカメラストリームを1つの出力に合成",

		// Run command
		"Capture from the synthetic dual camera and compose the streams": "合成デュアルカメラから取り込み、ストリームを合成",

		// Version command
		"Show version information": "バージョン情報を表示",
		"dualcam version %s":       "dualcam バージョン %s",

		// Output flags
		"YAML configuration file":            "YAML設定ファイル",
		"Output file for the encoded chunks": "エンコード済みチャンクの出力ファイル",
		"Markdown session summary path":      "Markdownセッションサマリーの出力先",

		// Layout flags
		"Layout (pip, side-by-side, overlay, split)":                    "レイアウト（pip, side-by-side, overlay, split）",
		"Stream drawn full frame (front, back)":                         "全面に描画するストリーム（front, back）",
		"Inset width relative to the output width":                      "出力幅に対する子画面の幅",
		"Inset corner (top_left, top_right, bottom_left, bottom_right)": "子画面の位置（top_left, top_right, bottom_left, bottom_right）",
		"Background color (hex)":                                        "背景色（16進数）",
		"Inset border color (hex)":                                      "子画面の枠線色（16進数）",

		// Synchronization flags
		"Maximum timestamp difference of a frame pair": "フレームペアのタイムスタンプ差の上限",
		"Compose pairs without checking timestamps":    "タイムスタンプを確認せずに合成",

		// Quality flags
		"Quality preset (low, medium, high)":             "品質プリセット（low, medium, high）",
		"Compositions allowed in flight":                 "同時に実行できる合成数",
		"Deliver frames to the encoder in capture order": "取り込み順にエンコーダーへ渡す",
		"JPEG quality (1-100, overrides quality preset)": "JPEG品質（1-100、品質プリセットを上書き）",
		"Software device workers (0 = automatic)":        "ソフトウェアデバイスのワーカー数（0 = 自動）",

		// Source flags
		"Capture frame rate":                        "取り込みフレームレート",
		"Frames to capture (0 = until interrupted)": "取り込むフレーム数（0 = 中断まで）",
		"Capture the front camera only":             "前面カメラのみを取り込む",

		// Debug flags
		"Serve Prometheus metrics on this address":              "このアドレスでPrometheusメトリクスを公開",
		"Save configuration, metrics and frames for inspection": "設定・メトリクス・フレームを検査用に保存",
		"Debug output directory":                                "デバッグ出力ディレクトリ",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress log output":                  "ログ出力を抑制",

		// Summary headings and labels
		"Session Summary":       "セッションサマリー",
		"Session":               "セッション",
		"Settings":              "設定",
		"Frames":                "フレーム",
		"Performance":           "パフォーマンス",
		"Item":                  "項目",
		"Value":                 "値",
		"Session ID":            "セッションID",
		"Started":               "開始",
		"Duration":              "所要時間",
		"Final State":           "最終状態",
		"Device":                "デバイス",
		"Layout":                "レイアウト",
		"Primary Source":        "主ストリーム",
		"Quality Preset":        "品質プリセット",
		"Frame Sync":            "フレーム同期",
		"Enabled":               "有効",
		"Disabled":              "無効",
		"Max Concurrent Frames": "最大同時合成数",
		"Output Order":          "出力順",
		"Completion order":      "完了順",
		"Admission order":       "受付順",
		"Submitted":             "投入",
		"Processed":             "処理済み",
		"Dropped":               "破棄",
		"desync":                "非同期",
		"quality":               "品質",
		"shutdown":              "停止",
		"Failed":                "失敗",
		"Encode Failures":       "エンコード失敗",
		"Peak In Flight":        "最大同時実行数",
		"Frame Rate":            "フレームレート",
		"Average Latency":       "平均レイテンシ",
		"P95 Latency":           "P95レイテンシ",
		"Drop Rate":             "破棄率",
		"Quality Level":         "品質レベル",
		"GPU Utilization":       "GPU使用率",
		"Memory Utilization":    "メモリ使用率",
		"File":                  "ファイル",
		"Codec":                 "コーデック",
		"Chunks":                "チャンク数",
		"File Size":             "ファイルサイズ",
		"Frame Size":            "フレームサイズ",
		"Generated at":          "生成日時",
	})
}
