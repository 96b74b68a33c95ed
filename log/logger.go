package log

import (
	"os"
	"path/filepath"

	"github.com/claimrecon/crv-app/conf"
	"github.com/sirupsen/logrus"
)

var (
	Validator logrus.FieldLogger
	RateStore logrus.FieldLogger
	Request   logrus.FieldLogger
	Reference logrus.FieldLogger
)

func init() {
	Validator = Logger(logrus.New(), conf.GetEnv("CRV_ERROR_LOG"),
		"validator", conf.GetEnv("ENVIRONMENT"))
	RateStore = Logger(logrus.New(), conf.GetEnv("CRV_RATE_LOG"),
		"ratestore", conf.GetEnv("ENVIRONMENT"))
	Request = Logger(logrus.New(), conf.GetEnv("CRV_REQUEST_LOG"),
		"api", conf.GetEnv("ENVIRONMENT"))
	Reference = Logger(logrus.New(), conf.GetEnv("CRV_REFERENCE_LOG"),
		"reference", conf.GetEnv("ENVIRONMENT"))
}

func Logger(logger *logrus.Logger, outputFile string,
	application, environment string) logrus.FieldLogger {

	if outputFile != "" {
		if file, err := os.OpenFile(filepath.Clean(outputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Infof("Failed to open output file %s. Will use stderr. %s",
				outputFile, err.Error())
		}
	}

	return logger.WithFields(logrus.Fields{
		"application": application,
		"environment": environment})
}
