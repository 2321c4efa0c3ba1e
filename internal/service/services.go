package service

type Services interface {
	Share() ShareService
	Config() ConfigService
	Path() PathService
}

type services struct {
	shareService  ShareService
	configService ConfigService
	pathService   PathService
}

// NewServices wires the services together. showProgress enables the stderr spinner.
func NewServices(showProgress bool) Services {
	pathService := newPathService()
	configService := newConfigService()
	shareService := newShareService(pathService, showProgress)
	return &services{
		shareService:  shareService,
		configService: configService,
		pathService:   pathService,
	}
}

func (s services) Share() ShareService {
	return s.shareService
}

func (s services) Config() ConfigService {
	return s.configService
}

func (s services) Path() PathService {
	return s.pathService
}
