// Package errkind はユースケース層のエラー種別を定義します。
//
// 各ドメインパッケージのセンチネルエラーはいずれかの種別をラップし、
// アダプタ層は errors.Is で種別を判定して応答ステータスを決定します。
package errkind

import "errors"

var (
	// ErrStateConflict は現在の状態では適用できない操作を表します。
	ErrStateConflict = errors.New("state conflict")
	// ErrValidation は入力が不正な操作を表します。
	ErrValidation = errors.New("validation failure")
	// ErrNotFound は参照先リソースが存在しないことを表します。
	ErrNotFound = errors.New("not found")
	// ErrConflict は同一キーへの並行書き込みによるバージョン不一致を表します。
	ErrConflict = errors.New("conflict")
)

// Kind はエラー種別の識別子です。
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindStateConflict Kind = "state_conflict"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
)

// Of は err が属する種別を返します。
func Of(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrStateConflict):
		return KindStateConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindUnknown
	}
}
