package checkout

import "errors"

const (
	// MsgIncompleteData ответ клиенту при отсутствии обязательных полей.
	MsgIncompleteData = "Dados incompletos. Verifique o plano e a placa."
	// MsgInvalidPrice ответ клиенту при нечисловой или неположительной цене.
	MsgInvalidPrice = "Preço do plano inválido."
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrProviderCommunication = errors.New("payment provider communication failure")
)

// InputError ошибка валидации с сообщением для клиента.
// errors.Is(err, ErrInvalidInput) для неё всегда true.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *InputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}
