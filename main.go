package main

import "github.com/ntfs-tools/ntfsinspector/cmd"

func main() {
	cmd.Execute()
}
