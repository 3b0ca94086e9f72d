package platform

func checkExecutable(string) error {
	return nil
}
