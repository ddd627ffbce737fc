// librarian 馆员命令行, 直接访问数据库完成入库、借还、缴费等操作
package main

import (
	"fmt"
	"os"
)

func main() {
	c := &cli{}
	err := newRootCmd(c).Execute()
	// 命令失败时PersistentPostRun不会执行
	c.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
