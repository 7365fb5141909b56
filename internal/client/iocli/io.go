package iocli

//go:generate moq -out io_mock.go . IO

// IO abstracts terminal input/output for the scoring device CLI.
// ReadSecret не эхоит ввод - им читается ключ лицензии.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadSecret(prompt string) (string, error)
}
