package policy

type fakeActor struct {
	read  map[string]bool
	write map[string]bool
	admin bool
}

func (a fakeActor) CanRead(module string) bool  { return a.read[module] }
func (a fakeActor) CanWrite(module string) bool { return a.write[module] }
func (a fakeActor) IsAdmin() bool               { return a.admin }

func readerOf(modules ...string) fakeActor {
	read := make(map[string]bool, len(modules))
	for _, m := range modules {
		read[m] = true
	}
	return fakeActor{read: read}
}

// writerOf grants read and write on the given modules; writes imply reads
// everywhere this application assigns permissions.
func writerOf(modules ...string) fakeActor {
	read := make(map[string]bool, len(modules))
	write := make(map[string]bool, len(modules))
	for _, m := range modules {
		read[m] = true
		write[m] = true
	}
	return fakeActor{read: read, write: write}
}

func adminActor() fakeActor {
	return fakeActor{admin: true}
}

func nobody() fakeActor {
	return fakeActor{}
}
