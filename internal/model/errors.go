package model

import "errors"

// Виды ошибок ядра. Конкретные ошибки оборачивают их через fmt.Errorf("%w: ...").
var (
	// ErrValidation: некорректные или противоречивые входные данные.
	ErrValidation = errors.New("validation error")
	// ErrConflict: нарушение ограничения «не более одного» (повторный отклик, повторный платёж).
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition: запрошенный статус недостижим из текущего.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrAuthorization: участник не является владельцем или исполнителем сущности.
	ErrAuthorization = errors.New("not authorized")
	// ErrPrecondition: отсутствует требуемое предшествующее состояние.
	ErrPrecondition = errors.New("precondition failed")
	// ErrNotFound: сущность не найдена.
	ErrNotFound = errors.New("not found")
	// ErrInternal: сбой хранилища или транспорта без бизнес-смысла.
	ErrInternal = errors.New("internal error")
)

var businessKinds = []error{
	ErrValidation,
	ErrConflict,
	ErrInvalidTransition,
	ErrAuthorization,
	ErrPrecondition,
	ErrNotFound,
}

// IsBusiness сообщает, относится ли ошибка к одному из бизнес-видов.
func IsBusiness(err error) bool {
	for _, k := range businessKinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
