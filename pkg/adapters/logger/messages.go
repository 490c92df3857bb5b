package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session lifecycle (info)
		"Capturing (%s layout, %s preset)...":                 "取り込み中 (%s レイアウト, %s プリセット)...",
		"Session %s started (layout %s, quality %.2f)":        "セッション %s を開始しました (レイアウト %s, 品質 %.2f)",
		"Stopping, %d frames in flight":                       "停止中、処理中のフレーム %d",
		"Session %s drained (%d processed, %d dropped)":       "セッション %s の処理が完了しました (処理 %d, 破棄 %d)",
		"Pipeline reset":                                      "パイプラインをリセットしました",
		"State %s -> %s":                                      "状態 %s -> %s",
		"Configuration updated (layout %s, preset %s)":        "設定を更新しました (レイアウト %s, プリセット %s)",
		"Processed %d frames, dropped %d, output saved to %s": "%d フレームを処理、%d フレームを破棄し、%s に保存しました",
		"Interrupted, draining...":                            "中断されました。処理中のフレームを完了しています...",

		// Quality and metrics
		"Pressure %s is now %s": "%s の負荷が %s になりました",
		"Sampling every %s":     "%s ごとにサンプリングします",
		"Serving metrics on %s": "%s でメトリクスを公開しています",

		// Composite stage and device
		"Compiled %s pipeline":                 "%s パイプラインをコンパイルしました",
		"Software device started with %d workers": "ソフトウェアデバイスを %d ワーカーで起動しました",
		"Software device closed":               "ソフトウェアデバイスを閉じました",
		"Dispatched %s at quality %.2f in %v":  "%s を品質 %.2f で %v で実行しました",

		// Per-frame details (debug)
		"Frame %d composed in %s (quality %.2f)":      "フレーム %d を %s で合成しました (品質 %.2f)",
		"Frame dropped (%s)":                          "フレームを破棄しました (%s)",
		"Holding %d frames waiting for sequence %d":   "シーケンス %[2]d を待って %[1]d フレームを保留しています",

		// Warnings
		"Configuration change rejected while %s": "%s 中のため設定変更を拒否しました",
		"Frame %d failed: %v":                    "フレーム %d の処理に失敗しました: %v",
		"Frame %d not encoded: %v":               "フレーム %d をエンコードできませんでした: %v",
		"Failed to encode configuration: %v":     "設定のエンコードに失敗しました: %v",
		"Failed to save configuration: %v":       "設定の保存に失敗しました: %v",
		"Failed to save frame %d: %v":            "フレーム %d の保存に失敗しました: %v",
		"Failed to save metrics: %v":             "メトリクスの保存に失敗しました: %v",
		"Failed to report pressure: %v":          "負荷の通知に失敗しました: %v",
		"Failed to write summary: %v":            "サマリーの書き込みに失敗しました: %v",

		// Errors
		"Device lost, session %s ends":  "デバイスが失われました。セッション %s を終了します",
		"Failed to prepare pipeline: %v": "パイプラインの準備に失敗しました: %v",
		"Illegal transition %s -> %s":   "不正な状態遷移 %s -> %s",
		"Metrics server failed: %v":     "メトリクスサーバーが失敗しました: %v",
	})
}
