package main

var connectorFactories = []ConnectorFactory{
	&FTPConnectorFactory{},
	&SFTPConnectorFactory{},
	// add more
}

func getConnectorFactory(scheme string) ConnectorFactory {
	for _, factory := range connectorFactories {
		if factory.Accept(scheme) {
			return factory
		}
	}
	return nil
}
