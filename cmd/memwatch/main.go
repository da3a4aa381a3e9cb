// memwatch 对本机进程运行内存压力管理，或离线分析内存样本
package main

func main() {
	Execute()
}
