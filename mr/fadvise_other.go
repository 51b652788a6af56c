//go:build !linux

package mr

import "os"

func adviseSequential(*os.File) {}
