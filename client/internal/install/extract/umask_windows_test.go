package extract

import "os"

func umask() os.FileMode {
	return 0
}
