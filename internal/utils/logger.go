package utils

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// 所有组件共享同一个logrus实例，组件名通过字段区分
var base = newBaseLogger()

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	// 标准输出留给命令结果
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if os.Getenv("DEBUG") == "true" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

type Logger struct {
	name  string
	entry *logrus.Entry
}

func NewLogger(name string) *Logger {
	return &Logger{
		name:  name,
		entry: base.WithField("component", name),
	}
}

// ConfigureLogging 根据命令行/配置调整全局日志级别和格式
func ConfigureLogging(verbose bool, format string) {
	if verbose {
		base.SetLevel(logrus.DebugLevel)
	}
	if strings.EqualFold(format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	}
}

// SetOutput 重定向日志输出（测试中使用）
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}
