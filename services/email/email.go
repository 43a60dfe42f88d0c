package emailsvc

import (
	"net/mail"

	"github.com/trezcool/campusboard/core"
)

// fromAddress parses conf.DefaultFromEmail ("Name <addr>" or a bare address).
func fromAddress(conf *core.Config) mail.Address {
	if addr, err := mail.ParseAddress(conf.DefaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: conf.AppName, Address: conf.DefaultFromEmail}
}

func subjectPrefix(conf *core.Config) string {
	return "[" + conf.AppName + "] "
}
