// Package apps holds what the command line apps share.
package apps

// ArgumentError reports an invalid command line flag value.
type ArgumentError struct {
	Flag string
	msg  string
}

func NewArgumentError(flag, msg string) *ArgumentError {
	return &ArgumentError{Flag: flag, msg: msg}
}

func (err *ArgumentError) Error() string {
	if err.Flag == "" {
		return err.msg
	}
	return "-" + err.Flag + ": " + err.msg
}
