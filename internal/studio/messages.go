package studio

import (
	"context"
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/stampmaker/internal/batch"
	"github.com/lehigh-university-libraries/stampmaker/internal/gate"
	"github.com/lehigh-university-libraries/stampmaker/internal/imagecodec"
	"github.com/lehigh-university-libraries/stampmaker/internal/providers"
	"github.com/lehigh-university-libraries/stampmaker/internal/readiness"
)

// Message renders err as the remediation text shown to the user
func Message(err error) string {
	var itemErr *batch.ItemError
	var readErr *imagecodec.FileReadError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, gate.ErrAccessDenied):
		return "認証パスワードが正しくありません。"
	case errors.Is(err, readiness.ErrKeyNotReady):
		return "APIキーが設定されていません。API_KEY 環境変数を設定するか、`stampmaker key select` でキーを選択してください。"
	case errors.Is(err, batch.ErrEmptyBatch):
		return "スタンプの文字を入力してください。"
	case errors.As(err, &readErr):
		return fmt.Sprintf("参考画像「%s」を読み込めませんでした。", readErr.Name)
	case errors.As(err, &itemErr):
		if errors.Is(itemErr, providers.ErrKeyInvalid) {
			return fmt.Sprintf("「%s」の作成に失敗: APIキーが無効です。キーを選択し直してください。", itemErr.Caption)
		}
		return fmt.Sprintf("「%s」の作成に失敗: %v", itemErr.Caption, itemErr.Err)
	case errors.Is(err, providers.ErrSuggestionFailed):
		return "AI案の取得に失敗しました。"
	case errors.Is(err, context.Canceled):
		return "生成を中断しました。"
	case errors.Is(err, ErrBusy):
		return "処理中です。完了までお待ちください。"
	default:
		return "エラーが発生しました。"
	}
}
